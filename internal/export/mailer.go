package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
)

// Mailer delivers a report email with a CSV attachment.
type Mailer interface {
	SendReport(ctx context.Context, subject, body, attachmentName string, attachment []byte) error
}

// SMTPMailer sends report emails over plain SMTP.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	to       []string
}

func NewSMTPMailer(host, port, username, password, from string, to []string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
	}
}

func (m *SMTPMailer) SendReport(ctx context.Context, subject, body, attachmentName string, attachment []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := buildMessage(m.from, m.to, subject, body, attachmentName, attachment)
	if err != nil {
		return fmt.Errorf("build report message: %w", err)
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, m.to, msg); err != nil {
		return fmt.Errorf("send report email: %w", err)
	}
	return nil
}

// buildMessage renders a multipart/mixed MIME message with a text body and
// one base64 CSV attachment.
func buildMessage(from string, to []string, subject, body, attachmentName string, attachment []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", mw.Boundary())
	buf.WriteString("\r\n")

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", `text/plain; charset="UTF-8"`)
	part, err := mw.CreatePart(textHeader)
	if err != nil {
		return nil, fmt.Errorf("create text part: %w", err)
	}
	if _, err := part.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("write text part: %w", err)
	}

	if len(attachment) > 0 {
		csvHeader := textproto.MIMEHeader{}
		csvHeader.Set("Content-Type", `text/csv; charset="UTF-8"`)
		csvHeader.Set("Content-Transfer-Encoding", "base64")
		csvHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachmentName))
		part, err := mw.CreatePart(csvHeader)
		if err != nil {
			return nil, fmt.Errorf("create attachment part: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(attachment)
		if _, err := part.Write([]byte(encoded)); err != nil {
			return nil, fmt.Errorf("write attachment part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), nil
}
