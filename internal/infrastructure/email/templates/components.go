package templates

import (
	"bytes"
	"html/template"
	"log"
	"net/url"
	"strings"
)

// ButtonProps describes a call-to-action link.
type ButtonProps struct {
	Text            string
	URL             string
	BackgroundColor string
	TextColor       string
}

var (
	buttonTemplate = template.Must(template.New("emailButton").Parse(`<table role="presentation" border="0" cellpadding="0" cellspacing="0" class="btn btn-primary" style="width: 100%;" width="100%">
  <tbody>
    <tr>
      <td align="left" style="padding-bottom: 16px;" valign="top">
        <a href="{{.URL}}" target="_blank" style="border-radius: 8px; display: inline-block; font-size: 16px; font-weight: bold; padding: 12px 24px; text-decoration: none; background-color: {{.BackgroundColor}}; color: {{.TextColor}};">{{.Text}}</a>
      </td>
    </tr>
  </tbody>
</table>`))

	paragraphTemplate = template.Must(template.New("emailParagraph").Parse(`<p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">{{.}}</p>`))

	codeTemplate = template.Must(template.New("emailCode").Parse(`<p style="font-family: 'Courier New', monospace; font-size: 32px; font-weight: bold; letter-spacing: 8px; margin: 0; margin-bottom: 16px;">{{.}}</p>`))

	listTemplate = template.Must(template.New("emailList").Parse(`<ul style="margin: 0; margin-bottom: 16px; padding-left: 20px;">{{range .}}<li style="margin-bottom: 4px;">{{.}}</li>{{end}}</ul>`))
)

// GetButton renders a link button. Unsafe URLs collapse to "#".
func GetButton(props ButtonProps) string {
	if props.BackgroundColor == "" {
		props.BackgroundColor = "#111827"
	}
	if props.TextColor == "" {
		props.TextColor = "#ffffff"
	}
	props.URL = sanitizeEmailURL(props.URL)
	if props.URL == "" {
		props.URL = "#"
	}
	return execute(buttonTemplate, props)
}

// GetParagraph renders escaped text.
func GetParagraph(text string) string {
	return execute(paragraphTemplate, text)
}

// GetCode renders a one-time code in large monospace type.
func GetCode(code string) string {
	return execute(codeTemplate, code)
}

// GetList renders escaped bullet items.
func GetList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return execute(listTemplate, items)
}

func execute(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Printf("Error executing email template %s: %v", tmpl.Name(), err)
		return ""
	}
	return buf.String()
}

// sanitizeEmailURL keeps absolute http(s) and mailto links.
func sanitizeEmailURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		if parsed.Host == "" {
			return ""
		}
	case "mailto":
	default:
		return ""
	}
	return parsed.String()
}
