package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/olahol/melody"
	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/utils"
)

const (
	keyUserID = "user_id"
	keyRole   = "role"
)

// Hub keeps one websocket session per connected browser tab and pushes
// unviewed-progress summaries to the sessions of a single user
type Hub struct {
	m      *melody.Melody
	logger *utils.Logger
}

// unviewedEvent is the frame pushed to clients
type unviewedEvent struct {
	Type string `json:"type"`
	models.UnviewedSummary
}

func NewHub(logger *utils.Logger) *Hub {
	m := melody.New()
	m.Config.MaxMessageSize = 4096
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		userID, _ := s.Get(keyUserID)
		logger.Info("websocket connected user=%v", userID)
	})

	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get(keyUserID)
		logger.Info("websocket disconnected user=%v", userID)
	})

	m.HandleError(func(s *melody.Session, err error) {
		userID, _ := s.Get(keyUserID)
		logger.Warn("websocket error user=%v: %v", userID, err)
	})

	return &Hub{m: m, logger: logger}
}

// Serve upgrades the request and registers the session for userID
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, role models.Role) error {
	return h.m.HandleRequestWithKeys(w, r, map[string]interface{}{
		keyUserID: userID,
		keyRole:   string(role),
	})
}

// PublishUnviewed sends summary to every open session of userID
func (h *Hub) PublishUnviewed(userID string, summary models.UnviewedSummary) error {
	msg, err := json.Marshal(unviewedEvent{Type: "unviewed", UnviewedSummary: summary})
	if err != nil {
		return err
	}

	return h.m.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, exists := s.Get(keyUserID)
		return exists && id == userID
	})
}

// Len returns the number of open sessions
func (h *Hub) Len() int {
	return h.m.Len()
}

// Close disconnects every session
func (h *Hub) Close() error {
	return h.m.Close()
}
