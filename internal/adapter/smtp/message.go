package smtp

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"

	"github.com/Strob0t/contactrelay/internal/port/mailer"
)

// buildMessage renders msg as an RFC 5322 HTML message. Bcc recipients
// only appear in the envelope, never in the headers.
func buildMessage(msg *mailer.Message, now time.Time) ([]byte, error) {
	if msg.From.Email == "" {
		return nil, fmt.Errorf("sender address is required")
	}
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("at least one To recipient is required")
	}

	var h gomail.Header
	h.SetDate(now)
	h.SetAddressList("From", addressList([]mailer.Address{msg.From}))
	h.SetAddressList("To", addressList(msg.To))
	h.SetSubject(msg.Subject)
	if msg.ID != "" {
		h.SetMessageID(msg.ID + "@" + domainOf(msg.From.Email))
	}
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}
	if _, err := io.WriteString(w, msg.HTML); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}
	return buf.Bytes(), nil
}

func addressList(in []mailer.Address) []*gomail.Address {
	out := make([]*gomail.Address, 0, len(in))
	for _, a := range in {
		out = append(out, &gomail.Address{Name: a.Name, Address: a.Email})
	}
	return out
}

func domainOf(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 && i < len(email)-1 {
		return email[i+1:]
	}
	return "localhost"
}
