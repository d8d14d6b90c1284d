package sendwarnings

import (
	"bytes"
	htmltemplate "html/template"
	"os"
	texttemplate "text/template"
	"time"

	"phishbot/internal/models"
)

const DefaultSubject = "Security awareness: you interacted with a simulated phishing email"

const defaultTextTemplate = `Hello {{.FirstName}} {{.LastName}},

As part of our ongoing security awareness programme, a simulated phishing
email was sent to staff this month. Our records show that you {{.Action}}
on {{.EventDate}}.

No harm was done, but a real attack looks exactly like this. Before you
click a link or enter your password, check the sender address, hover over
links to see where they lead, and report anything suspicious to the
security team using the "Report phishing" button.

A short refresher on spotting phishing is available on the intranet. As a
{{.Position}} you have access to systems attackers are interested in, so
please take ten minutes to go through it.

Thank you,
{{.SenderName}}
`

const defaultHTMLTemplate = `<html>
<body style="font-family: Arial, sans-serif; font-size: 14px;">
<p>Hello {{.FirstName}} {{.LastName}},</p>
<p>As part of our ongoing security awareness programme, a simulated phishing email was sent
to staff this month. Our records show that you <strong>{{.Action}}</strong> on {{.EventDate}}.</p>
<p>No harm was done, but a real attack looks exactly like this. Before you click a link or
enter your password:</p>
<ul>
<li>check the sender address,</li>
<li>hover over links to see where they lead,</li>
<li>report anything suspicious using the <em>Report phishing</em> button.</li>
</ul>
<p>As a {{.Position}} you have access to systems attackers are interested in, so please take
ten minutes to go through the refresher on the intranet.</p>
<p>Thank you,<br>{{.SenderName}}</p>
</body>
</html>
`

// TemplateData is what subject and body templates can reference.
type TemplateData struct {
	FirstName    string
	LastName     string
	FullName     string
	Email        string
	Position     string
	Severity     string
	Action       string
	EventType    string
	EventDate    string
	CampaignName string
	SenderName   string
}

// Renderer turns a classified result into a warning message.
type Renderer struct {
	subject    *texttemplate.Template
	text       *texttemplate.Template
	html       *htmltemplate.Template
	senderName string
}

// NewRenderer parses the subject and the body templates. Empty paths select
// the built-in bodies.
func NewRenderer(subject, textPath, htmlPath, senderName string) (*Renderer, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	subj, err := texttemplate.New("subject").Option("missingkey=error").Parse(subject)
	if err != nil {
		return nil, err
	}

	textSrc, err := readOr(textPath, defaultTextTemplate)
	if err != nil {
		return nil, err
	}
	text, err := texttemplate.New("text").Option("missingkey=error").Parse(textSrc)
	if err != nil {
		return nil, err
	}

	htmlSrc, err := readOr(htmlPath, defaultHTMLTemplate)
	if err != nil {
		return nil, err
	}
	html, err := htmltemplate.New("html").Option("missingkey=error").Parse(htmlSrc)
	if err != nil {
		return nil, err
	}

	return &Renderer{subject: subj, text: text, html: html, senderName: senderName}, nil
}

// Render fills the templates for one target.
func (r *Renderer) Render(result models.TargetResult, campaignName string) (*models.WarningMessage, error) {
	data := newTemplateData(result, campaignName, r.senderName)

	var subj, text, html bytes.Buffer
	if err := r.subject.Execute(&subj, data); err != nil {
		return nil, err
	}
	if err := r.text.Execute(&text, data); err != nil {
		return nil, err
	}
	if err := r.html.Execute(&html, data); err != nil {
		return nil, err
	}

	return &models.WarningMessage{
		To:       result.Target,
		Subject:  subj.String(),
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

func newTemplateData(result models.TargetResult, campaignName, senderName string) TemplateData {
	position := result.Target.Position
	if position == "" {
		position = "member of staff"
	}
	eventDate := "during the campaign"
	if !result.EventTime.IsZero() {
		eventDate = result.EventTime.UTC().Format(time.RFC1123)
	}
	return TemplateData{
		FirstName:    result.Target.FirstName,
		LastName:     result.Target.LastName,
		FullName:     result.Target.FullName(),
		Email:        result.Target.Email,
		Position:     position,
		Severity:     result.Severity.String(),
		Action:       actionText(result.Severity),
		EventType:    result.EventType,
		EventDate:    eventDate,
		CampaignName: campaignName,
		SenderName:   senderName,
	}
}

func actionText(s models.Severity) string {
	switch s {
	case models.SeveritySubmitted:
		return "entered your credentials on the linked page"
	case models.SeverityClicked:
		return "clicked the link in the email"
	case models.SeverityOpened:
		return "opened the email"
	default:
		return "received the email"
	}
}

func readOr(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
