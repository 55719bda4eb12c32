package mailer

// EmailJob is a rendered-or-renderable email. Template names a base in
// pkg/mailer/templates and Data feeds it; Subject, Text and HTML are used as
// given when Template is empty.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
