package imap

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Body is the readable content of an RFC 5322 message
type Body struct {
	Text           string
	HTML           string
	HasAttachments bool
}

// ParseBody reads the first plain text and HTML parts of a message.
// Parts in an unknown charset are kept undecoded.
func ParseBody(r io.Reader) (Body, error) {
	var body Body

	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return body, fmt.Errorf("failed to read message: %w", err)
	}

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return body, fmt.Errorf("failed to read message part: %w", err)
		}
		if p == nil {
			break
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			switch {
			case strings.HasPrefix(ct, "text/plain") && body.Text == "":
				b, err := io.ReadAll(p.Body)
				if err != nil {
					return body, fmt.Errorf("failed to read text part: %w", err)
				}
				body.Text = string(b)
			case strings.HasPrefix(ct, "text/html") && body.HTML == "":
				b, err := io.ReadAll(p.Body)
				if err != nil {
					return body, fmt.Errorf("failed to read html part: %w", err)
				}
				body.HTML = string(b)
			}
		case *mail.AttachmentHeader:
			body.HasAttachments = true
		}
	}
	return body, nil
}
