// Package notification delivers e-mail messages, optionally carrying one
// attachment, through a configured provider.
package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"
)

// ---------------------------------------------------------------------------
// Failure classes
// ---------------------------------------------------------------------------

var (
	// ErrConnect means the provider could not be reached.
	ErrConnect = errors.New("notification: connection failed")
	// ErrAuth means the provider refused the configured credentials.
	ErrAuth = errors.New("notification: authentication failed")
	// ErrRejected means the provider refused the message itself.
	ErrRejected = errors.New("notification: message rejected")
)

// ---------------------------------------------------------------------------
// Message
// ---------------------------------------------------------------------------

// Attachment is a named in-memory file.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a plain-text e-mail to a single recipient.
type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment *Attachment
}

// Sender is the From identity used for outgoing mail.
type Sender struct {
	Name    string
	Address string
}

// Dispatcher sends one message per call. Implementations do not retry.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// compose renders msg as an RFC 5322 message with a MIME attachment part.
func compose(from Sender, msg Message) ([]byte, error) {
	m := gomail.NewMsg()
	if from.Name != "" {
		if err := m.FromFormat(from.Name, from.Address); err != nil {
			return nil, fmt.Errorf("set from: %w", err)
		}
	} else if err := m.From(from.Address); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	if a := msg.Attachment; a != nil {
		ct := a.ContentType
		if ct == "" {
			ct = string(gomail.TypeAppOctetStream)
		}
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Data), gomail.WithFileContentType(gomail.ContentType(ct))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write message: %w", err)
	}
	return buf.Bytes(), nil
}

// ---------------------------------------------------------------------------
// Log dispatcher
// ---------------------------------------------------------------------------

// LogDispatcher records messages in the log instead of sending them.
type LogDispatcher struct {
	logger zerolog.Logger
}

func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, msg Message) error {
	ev := d.logger.Info().Str("to", msg.To).Str("subject", msg.Subject)
	if msg.Attachment != nil {
		ev = ev.Str("attachment", msg.Attachment.Filename).Int("attachment_bytes", len(msg.Attachment.Data))
	}
	ev.Msg("email not sent: log provider")
	return nil
}
