package core

import (
	"bytes"
	"embed"
	htmltmpl "html/template"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

//go:embed templates/email/*
var emailFS embed.FS

var (
	textTemplates map[string]*texttmpl.Template
	htmlTemplates map[string]*htmltmpl.Template
	tmplErr       error
	tmplInit      sync.Once
)

type (
	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills TextContent and HTMLContent from BodyStr or the named template.
func (m *EmailMessage) Render(frontendBaseURL string) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}
	if err := ParseEmailTemplates(); err != nil {
		return err
	}

	data := ContextData{FrontendBaseURL: frontendBaseURL, Data: m.TemplateData}
	if tmpl, ok := textTemplates[m.TemplateName]; ok {
		var buff bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
		}
		m.TextContent = buff.String()
	}
	if tmpl, ok := htmlTemplates[m.TemplateName]; ok {
		var buff bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buff, "base", data); err != nil {
			return errors.Wrapf(err, "rendering %s.gohtml", m.TemplateName)
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates parses the embedded email templates once.
func ParseEmailTemplates() error {
	tmplInit.Do(func() { tmplErr = parseTemplates() })
	return tmplErr
}

func parseTemplates() error {
	textTemplates = make(map[string]*texttmpl.Template)
	htmlTemplates = make(map[string]*htmltmpl.Template)

	const dir = "templates/email"
	entries, err := emailFS.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "reading email templates")
	}

	for _, entry := range entries {
		fname := entry.Name()
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(emailFS, path.Join(dir, "_base.txt"), path.Join(dir, fname))
			if err != nil {
				return errors.Wrapf(err, "parsing %s", fname)
			}
			textTemplates[name] = tmpl.Option("missingkey=error")
		} else {
			tmpl, err := htmltmpl.ParseFS(emailFS, path.Join(dir, "_base.gohtml"), path.Join(dir, fname))
			if err != nil {
				return errors.Wrapf(err, "parsing %s", fname)
			}
			htmlTemplates[name] = tmpl.Option("missingkey=error")
		}
	}
	return nil
}
