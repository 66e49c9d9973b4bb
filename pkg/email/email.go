package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Send delivers one HTML email through plain SMTP auth.
func Send(server string, port int, username, password, fromName, to, subject, htmlBody string) error {
	if !strings.Contains(to, "@") {
		return fmt.Errorf("invalid email address: %s", to)
	}

	headers := fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n",
		fromName, username, to, subject,
	)
	msg := []byte(headers + htmlBody + "\r\n")

	auth := smtp.PlainAuth("", username, password, server)
	addr := fmt.Sprintf("%s:%d", server, port)
	return smtp.SendMail(addr, auth, username, []string{to}, msg)
}
