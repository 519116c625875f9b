// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"time"
)

// VerificationEmailData holds data for the account confirmation email.
type VerificationEmailData struct {
	SiteName string
	Link     string // <base>/verify/<accountId>
}

// BuildVerificationEmail creates the "confirm your email" message.
func BuildVerificationEmail(data VerificationEmailData) Email {
	var buf bytes.Buffer
	buf.WriteString("Hello,\n\n")
	buf.WriteString(fmt.Sprintf("Please click on the link below to verify your email for your %s account.\n\n", data.SiteName))
	buf.WriteString(data.Link + "\n\n")
	buf.WriteString("If you did not create this account, you can safely ignore this email.\n")
	return Email{
		To:      "", // Set by caller
		Subject: fmt.Sprintf("%s: Please confirm your Email account", data.SiteName),
		Body:    buf.String(),
	}
}

// ResetEmailData holds data for the password reset email.
type ResetEmailData struct {
	SiteName  string
	Link      string // <base>/reset/<token>
	ExpiresIn string // e.g., "1 hour"
}

// BuildResetEmail creates the password reset instructions.
func BuildResetEmail(data ResetEmailData) Email {
	var buf bytes.Buffer
	buf.WriteString("You have requested the reset of the password for your account.\n\n")
	buf.WriteString("Please click on the following link to complete the process:\n\n")
	buf.WriteString(data.Link + "\n\n")
	buf.WriteString(fmt.Sprintf("This link expires in %s.\n\n", data.ExpiresIn))
	buf.WriteString("If you did not request this, please ignore this email and your password will remain unchanged.\n")
	return Email{
		Subject: fmt.Sprintf("%s Password Reset", data.SiteName),
		Body:    buf.String(),
	}
}

// PasswordChangedEmailData holds data for the reset confirmation.
type PasswordChangedEmailData struct {
	SiteName string
	Username string
}

// BuildPasswordChangedEmail confirms a completed reset.
func BuildPasswordChangedEmail(data PasswordChangedEmailData) Email {
	var buf bytes.Buffer
	buf.WriteString("Hello,\n\n")
	buf.WriteString(fmt.Sprintf("This is a confirmation that the password for your account %s has just been changed.\n", data.Username))
	return Email{
		Subject: fmt.Sprintf("Your %s password has been changed", data.SiteName),
		Body:    buf.String(),
	}
}

// ContactEmailData holds a visitor's contact form submission.
type ContactEmailData struct {
	SiteName string
	Name     string
	Email    string
	Subject  string
	Message  string
}

// BuildContactEmail forwards a contact form submission to the site operator.
func BuildContactEmail(data ContactEmailData) Email {
	var buf bytes.Buffer
	buf.WriteString("You have a new contact request:\n\n")
	buf.WriteString("Contact Details\n")
	buf.WriteString(fmt.Sprintf("  Name:    %s\n", data.Name))
	buf.WriteString(fmt.Sprintf("  Email:   %s\n", data.Email))
	buf.WriteString(fmt.Sprintf("  Subject: %s\n\n", data.Subject))
	buf.WriteString("Message\n")
	buf.WriteString(data.Message + "\n")
	return Email{
		Subject: fmt.Sprintf("New message from contact form at %s", data.SiteName),
		Body:    buf.String(),
	}
}

// FormatDuration renders a TTL the way the emails phrase it ("1 hour", "30 minutes").
func FormatDuration(d time.Duration) string {
	mins := int(d.Minutes())
	switch {
	case mins >= 60 && mins%60 == 0:
		h := mins / 60
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case mins == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", mins)
	}
}
