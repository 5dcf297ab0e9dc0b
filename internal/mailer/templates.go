package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var (
	otpTemplate = template.Must(template.New("otp").Parse(
		`<p>Your verification code is <strong>{{.Code}}</strong>.</p>` +
			`<p>It expires in {{.Minutes}} minutes. If you did not request it, ignore this email.</p>`))

	confirmationTemplate = template.Must(template.New("confirmation").Parse(
		`<p>Hi {{.Name}},</p>` +
			`<p>Thanks for reaching out about {{.Service}}. We received your request and will reply shortly.</p>` +
			`<p>Reference: {{.ID}}</p>`))
)

// OTPEmail renders the verification code email.
func OTPEmail(code string, minutes int) (subject, html string, err error) {
	var buf bytes.Buffer
	if err := otpTemplate.Execute(&buf, map[string]interface{}{"Code": code, "Minutes": minutes}); err != nil {
		return "", "", fmt.Errorf("failed to render otp email: %w", err)
	}
	return "Your verification code", buf.String(), nil
}

// ConfirmationEmail renders the submission acknowledgement.
func ConfirmationEmail(id, name, service string) (subject, html string, err error) {
	var buf bytes.Buffer
	data := map[string]string{"ID": id, "Name": name, "Service": service}
	if err := confirmationTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render confirmation email: %w", err)
	}
	return "We received your project request", buf.String(), nil
}
