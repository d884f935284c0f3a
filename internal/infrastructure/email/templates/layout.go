// Package templates renders the HTML bodies of transactional mail.
package templates

import (
	"bytes"
	"html/template"
	"log"
)

// EmailLayoutProps fills the shared shell around every message.
type EmailLayoutProps struct {
	Title      string
	Preheader  string
	Content    template.HTML
	FooterText string
	SiteURL    string
	SiteName   string
}

var emailLayoutTemplate = template.Must(template.New("emailLayout").Parse(`<!doctype html>
<html lang="ru">
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
    <title>{{.Title}}</title>
    <style media="all" type="text/css">
      @media only screen and (max-width: 640px) {
        .main p, .main td, .main span { font-size: 16px !important; }
        .wrapper { padding: 8px !important; }
        .container { padding: 0 !important; padding-top: 8px !important; width: 100% !important; }
      }
    </style>
  </head>
  <body style="font-family: Helvetica, sans-serif; font-size: 16px; line-height: 1.3; background-color: #f4f5f6; margin: 0; padding: 0;">
    <span class="preheader" style="color: transparent; display: none; height: 0; max-height: 0; opacity: 0; overflow: hidden; mso-hide: all; visibility: hidden; width: 0;">{{.Preheader}}</span>
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" class="body" style="background-color: #f4f5f6; width: 100%;" width="100%" bgcolor="#f4f5f6">
      <tr>
        <td class="container" style="margin: 0 auto; max-width: 600px; padding: 24px 0 0; width: 600px;" width="600" valign="top">
          <table role="presentation" border="0" cellpadding="0" cellspacing="0" class="main" style="background: #ffffff; border: 1px solid #eaebed; border-radius: 16px; width: 100%;" width="100%">
            <tr>
              <td class="wrapper" style="box-sizing: border-box; padding: 24px;" valign="top">
                {{.Content}}
              </td>
            </tr>
          </table>
          <div class="footer" style="clear: both; padding-top: 24px; text-align: center; width: 100%;">
            <span style="color: #9a9ea6; font-size: 14px;">{{.FooterText}}</span>
            {{if .SiteURL}}<br><a href="{{.SiteURL}}" style="color: #9a9ea6; font-size: 14px; text-decoration: none;">{{.SiteName}}</a>{{end}}
          </div>
        </td>
      </tr>
    </table>
  </body>
</html>`))

// GetEmailLayout wraps content in the branded shell.
func GetEmailLayout(props EmailLayoutProps) string {
	if props.Title == "" {
		props.Title = "Peaky Minds"
	}
	if props.FooterText == "" {
		props.FooterText = "Вы получили это письмо, потому что оставили заявку на сайте школы."
	}
	if props.SiteName == "" {
		props.SiteName = "Peaky Minds"
	}

	var buf bytes.Buffer
	if err := emailLayoutTemplate.Execute(&buf, props); err != nil {
		log.Printf("Error executing email layout template: %v", err)
		return string(props.Content)
	}
	return buf.String()
}
