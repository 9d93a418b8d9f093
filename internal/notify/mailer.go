package notify

import (
	"context"
	"strings"
	"sync"

	"github.com/rongwang/buildtrue-server/internal/utils"
)

// Message is a single outgoing email
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the application log instead of sending them.
// It is the default when no relay API key is configured.
type LogMailer struct {
	logger *utils.Logger
}

func NewLogMailer(logger *utils.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail to=%s subject=%q\n%s", strings.Join(msg.To, ","), msg.Subject, msg.Text)
	return nil
}

// RecordingMailer keeps every sent message in memory
type RecordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *RecordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages
func (m *RecordingMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

// SetErr makes later sends fail with err until it is reset to nil
func (m *RecordingMailer) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
