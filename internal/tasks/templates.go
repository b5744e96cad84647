package tasks

import (
	"strings"
	"text/template"

	"propflow/api/internal/email"
)

const (
	TemplateWelcome       = "welcome"
	TemplateEnquiryNotice = "enquiry_notice"
	TemplatePasswordReset = "password_reset"
)

type emailTemplate struct {
	kind    email.Kind
	subject *template.Template
	body    *template.Template
}

type templateData struct {
	AppName string
	Data    any
}

func (t emailTemplate) render(appName string, data any) (string, string, error) {
	td := templateData{AppName: appName, Data: data}
	var subject, body strings.Builder
	if err := t.subject.Execute(&subject, td); err != nil {
		return "", "", err
	}
	if err := t.body.Execute(&body, td); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(subject.String()), body.String(), nil
}

func mustTemplate(kind email.Kind, name, subject, body string) emailTemplate {
	return emailTemplate{
		kind:    kind,
		subject: template.Must(template.New(name + ".subject").Option("missingkey=error").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Option("missingkey=error").Parse(body)),
	}
}

var templates = map[string]emailTemplate{
	TemplateWelcome: mustTemplate(email.KindWelcome, TemplateWelcome,
		`Welcome to {{.AppName}}`,
		`Hi {{.Data.FullName}},

An account has been created for you on {{.AppName}}. Use the password your
administrator gave you to sign in, then change it from your settings page.
`),
	TemplateEnquiryNotice: mustTemplate(email.KindEnquiryNotice, TemplateEnquiryNotice,
		`New enquiry: {{.Data.ListingTitle}}`,
		`Hi {{.Data.AgentName}},

{{.Data.Name}} ({{.Data.Email}}{{if .Data.Phone}}, {{.Data.Phone}}{{end}}) sent an enquiry about "{{.Data.ListingTitle}}":

{{.Data.Message}}
{{if .Data.ViewingRequested}}
A viewing was requested{{if .Data.ViewingDate}} for {{.Data.ViewingDate}}{{end}}.
{{end}}`),
	TemplatePasswordReset: mustTemplate(email.KindPasswordReset, TemplatePasswordReset,
		`Reset your {{.AppName}} password`,
		`Someone asked to reset the password of this account.

Open the link below to choose a new password. If it was not you, ignore this email.

{{.Data.ResetURL}}
`),
}
