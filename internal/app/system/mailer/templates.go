// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// InvitationEmailData holds data for coordinator and judge invitation
// emails.
type InvitationEmailData struct {
	SiteName      string
	HackathonName string
	InviterName   string
	RoleName      string // "coordinator" or "judge"
	AcceptLink    string
}

// BuildInvitationEmail creates an invitation email with both HTML and text bodies.
func BuildInvitationEmail(data InvitationEmailData) Email {
	return Email{
		To:       "", // Set by caller
		Subject:  fmt.Sprintf("You're invited to be a %s for %s", data.RoleName, data.HackathonName),
		TextBody: buildInvitationText(data),
		HTMLBody: buildInvitationHTML(data),
	}
}

func buildInvitationText(data InvitationEmailData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s has invited you to be a %s for %s.\n\n", data.InviterName, data.RoleName, data.HackathonName))
	buf.WriteString("Accept the invitation here:\n")
	buf.WriteString(data.AcceptLink + "\n\n")
	buf.WriteString("If you were not expecting this invitation, you can safely ignore this email.\n")
	return buf.String()
}

func buildInvitationHTML(data InvitationEmailData) string {
	tmpl := template.Must(template.New("invitation").Parse(invitationHTMLTemplate))
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}

// TeamDecisionEmailData holds data for approval and rejection emails sent
// to team leaders.
type TeamDecisionEmailData struct {
	SiteName      string
	HackathonName string
	TeamName      string
	Approved      bool
	Reason        string // set on rejection
	DashboardLink string
}

// BuildTeamDecisionEmail creates an approval or rejection email for a
// team leader.
func BuildTeamDecisionEmail(data TeamDecisionEmailData) Email {
	subject := fmt.Sprintf("%s is approved for %s", data.TeamName, data.HackathonName)
	if !data.Approved {
		subject = fmt.Sprintf("Registration update for %s", data.TeamName)
	}
	return Email{
		To:       "", // Set by caller
		Subject:  subject,
		TextBody: buildTeamDecisionText(data),
		HTMLBody: buildTeamDecisionHTML(data),
	}
}

func buildTeamDecisionText(data TeamDecisionEmailData) string {
	var buf bytes.Buffer
	if data.Approved {
		buf.WriteString(fmt.Sprintf("Good news! %s has been approved for %s.\n\n", data.TeamName, data.HackathonName))
	} else {
		buf.WriteString(fmt.Sprintf("Your registration for %s was not approved for %s.\n\n", data.TeamName, data.HackathonName))
		if data.Reason != "" {
			buf.WriteString("Reason: " + data.Reason + "\n\n")
		}
		buf.WriteString("You can update your registration and submit again.\n\n")
	}
	buf.WriteString("View your team dashboard:\n")
	buf.WriteString(data.DashboardLink + "\n")
	return buf.String()
}

func buildTeamDecisionHTML(data TeamDecisionEmailData) string {
	tmpl := template.Must(template.New("decision").Parse(teamDecisionHTMLTemplate))
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}

const invitationHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Invitation</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                {{.InviterName}} has invited you to be a <strong>{{.RoleName}}</strong> for <strong>{{.HackathonName}}</strong>.
              </p>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.AcceptLink}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 500; border-radius: 6px;">
                      Accept Invitation
                    </a>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you were not expecting this invitation, you can safely ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

const teamDecisionHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Registration Update</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              {{if .Approved}}
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Good news! <strong>{{.TeamName}}</strong> has been approved for <strong>{{.HackathonName}}</strong>.
              </p>
              {{else}}
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Your registration for <strong>{{.TeamName}}</strong> was not approved for <strong>{{.HackathonName}}</strong>.
              </p>
              {{if .Reason}}
              <p style="margin: 0 0 24px; font-size: 14px; color: #6b7280;">
                Reason: {{.Reason}}
              </p>
              {{end}}
              {{end}}
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.DashboardLink}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 500; border-radius: 6px;">
                      View Team Dashboard
                    </a>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
