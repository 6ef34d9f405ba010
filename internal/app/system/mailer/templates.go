// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// LinkEmailData holds data for the verification and reset templates.
type LinkEmailData struct {
	SiteName  string
	Link      string
	ExpiresIn string // e.g., "24 hours"
}

// BuildVerificationEmail creates the "confirm your address" email sent at sign-up.
func BuildVerificationEmail(data LinkEmailData) Email {
	return Email{
		To:       "", // Set by caller
		Subject:  fmt.Sprintf("Verify your %s email address", data.SiteName),
		TextBody: buildText(data, "Confirm your email address by opening this link:", "If you did not create an account, you can safely ignore this email."),
		HTMLBody: buildHTML(data, linkPage{
			Title:  "Verify your email",
			Intro:  "Thanks for joining! Confirm your email address to finish setting up your account.",
			Button: "Verify Email",
			Footer: "If you did not create an account, you can safely ignore this email.",
		}),
	}
}

// BuildPasswordResetEmail creates the password reset email.
func BuildPasswordResetEmail(data LinkEmailData) Email {
	return Email{
		To:       "", // Set by caller
		Subject:  fmt.Sprintf("Reset your %s password", data.SiteName),
		TextBody: buildText(data, "Reset your password by opening this link:", "If you did not request a password reset, you can safely ignore this email."),
		HTMLBody: buildHTML(data, linkPage{
			Title:  "Reset your password",
			Intro:  "We received a request to reset your password.",
			Button: "Reset Password",
			Footer: "If you did not request a password reset, you can safely ignore this email.",
		}),
	}
}

func buildText(data LinkEmailData, intro, footer string) string {
	var buf bytes.Buffer
	buf.WriteString(intro + "\n")
	buf.WriteString(data.Link + "\n\n")
	buf.WriteString(fmt.Sprintf("This link expires in %s.\n\n", data.ExpiresIn))
	buf.WriteString(footer + "\n")
	return buf.String()
}

type linkPage struct {
	Title  string
	Intro  string
	Button string
	Footer string
}

var linkTemplate = template.Must(template.New("link").Parse(linkHTMLTemplate))

func buildHTML(data LinkEmailData, page linkPage) string {
	var buf bytes.Buffer
	_ = linkTemplate.Execute(&buf, struct {
		LinkEmailData
		Page linkPage
	}{data, page})
	return buf.String()
}

const linkHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Page.Title}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #111827;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #111827;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #1f2937; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #374151;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #a78bfa;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #e5e7eb; line-height: 1.5;">{{.Page.Intro}}</p>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.Link}}" style="display: inline-block; padding: 14px 32px; background-color: #7c3aed; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 500; border-radius: 6px;">{{.Page.Button}}</a>
                  </td>
                </tr>
              </table>
              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">This link expires in {{.ExpiresIn}}.</p>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; border-top: 1px solid #374151;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">{{.Page.Footer}}</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
