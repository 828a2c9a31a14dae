package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/emrgen/coa/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	TypeContact    = "contact"
	TypeNewsletter = "newsletter"
	TypeSample     = "sample"
)

// ErrUnknownEmailType is returned for a request type without a template.
var ErrUnknownEmailType = errors.New("unknown email type")

//go:embed templates/*.html
var templateFS embed.FS

// Request asks for one templated email. Data feeds the template.
type Request struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type Options struct {
	From string
	// AdminTo receives contact and sample notifications.
	AdminTo string
	Company string
}

// Dispatcher renders requests with their template and hands them to a Mailer.
type Dispatcher struct {
	mailer    Mailer
	opts      Options
	templates map[string]*template.Template
}

func NewDispatcher(mailer Mailer, opts Options) (*Dispatcher, error) {
	templates := make(map[string]*template.Template)
	for _, name := range []string{TypeContact, TypeNewsletter, TypeSample} {
		tmpl, err := template.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		templates[name] = tmpl
	}
	return &Dispatcher{mailer: mailer, opts: opts, templates: templates}, nil
}

// Dispatch renders and sends req, returning the provider's message id.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (string, error) {
	tmpl, ok := d.templates[req.Type]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEmailType, req.Type)
	}

	data := make(map[string]any, len(req.Data)+1)
	for k, v := range req.Data {
		data[k] = v
	}
	if _, ok := data["company"]; !ok {
		data["company"] = d.opts.Company
	}

	subject, err := render(tmpl, "subject", data)
	if err != nil {
		return "", err
	}
	body, err := render(tmpl, "body", data)
	if err != nil {
		return "", err
	}

	msg := Message{From: d.opts.From, Subject: subject, HTML: body}
	email, _ := data["email"].(string)
	switch req.Type {
	case TypeNewsletter:
		if email == "" {
			return "", fmt.Errorf("newsletter email needs a recipient")
		}
		msg.To = []string{email}
	default:
		msg.To = []string{d.opts.AdminTo}
		msg.ReplyTo = email
	}

	id, err := d.mailer.Send(ctx, msg)
	metrics.EmailsSent.WithLabelValues(req.Type, metrics.Result(err)).Inc()
	if err != nil {
		logrus.Errorf("error sending %s email: %v", req.Type, err)
		return "", err
	}

	logrus.Infof("%s email sent: %s", req.Type, id)
	return id, nil
}

func render(tmpl *template.Template, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
