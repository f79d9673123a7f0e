package template

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*
var templatesFS embed.FS

const (
	htmlTemplateName = "notification.html"
	textTemplateName = "notification.txt"
)

// EmailData is the data the notification email template renders.
type EmailData struct {
	AppName        string
	Name           string
	Title          string
	Body           string
	ActionURL      string
	ActionLabel    string
	PreferencesURL string
}

// Engine renders the notification email as HTML and plain text.
type Engine struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewEngine parses the embedded notification templates.
func NewEngine() (*Engine, error) {
	html, err := htmltemplate.ParseFS(templatesFS, "templates/"+htmlTemplateName)
	if err != nil {
		return nil, fmt.Errorf("parsing html template: %w", err)
	}

	text, err := texttemplate.ParseFS(templatesFS, "templates/"+textTemplateName)
	if err != nil {
		return nil, fmt.Errorf("parsing text template: %w", err)
	}

	return &Engine{html: html, text: text}, nil
}

// Render produces the HTML body and its plain-text fallback.
func (e *Engine) Render(data EmailData) (html, text string, err error) {
	if data.Name == "" {
		data.Name = "there"
	}
	if data.ActionLabel == "" {
		data.ActionLabel = "Open"
	}

	var buf bytes.Buffer
	if err := e.html.ExecuteTemplate(&buf, htmlTemplateName, data); err != nil {
		return "", "", fmt.Errorf("executing html template: %w", err)
	}
	html = buf.String()

	buf.Reset()
	if err := e.text.ExecuteTemplate(&buf, textTemplateName, data); err != nil {
		return "", "", fmt.Errorf("executing text template: %w", err)
	}
	text = strings.TrimSpace(buf.String()) + "\n"

	return html, text, nil
}
