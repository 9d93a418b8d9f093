package notify

import (
	"bytes"
	"text/template"
)

// ProgressUpdate is the data rendered into the progress notification email
type ProgressUpdate struct {
	ClientName  string
	ClientEmail string
	ProjectName string
	Division    string
	Progress    int
	Description string
	TeamName    string
}

const progressSubject = "New Progress Update for Your Project"

var progressBody = template.Must(template.New("progress").Parse(
	`Dear {{if .ClientName}}{{.ClientName}}{{else}}Client{{end}},

A new progress update has been posted for your project "{{.ProjectName}}" by the contractor. Division: {{.Division}}, Progress: {{.Progress}}%, Description: {{.Description}}.

Please log in to view the details.

Best,
{{.TeamName}}`))

// ProgressUpdateEmail renders the notification sent to a client when a
// progress entry is posted on one of their projects
func ProgressUpdateEmail(data ProgressUpdate) (Message, error) {
	if data.TeamName == "" {
		data.TeamName = "The BuildTrue Team"
	}

	var body bytes.Buffer
	if err := progressBody.Execute(&body, data); err != nil {
		return Message{}, err
	}

	return Message{
		To:      []string{data.ClientEmail},
		Subject: progressSubject,
		Text:    body.String(),
	}, nil
}
