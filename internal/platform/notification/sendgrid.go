package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridDispatcher sends through the SendGrid v3 mail API.
type SendGridDispatcher struct {
	client sendGridClient
	from   Sender
}

func NewSendGridDispatcher(apiKey string, from Sender) *SendGridDispatcher {
	return &SendGridDispatcher{client: sendgrid.NewSendClient(apiKey), from: from}
}

func (d *SendGridDispatcher) Send(ctx context.Context, msg Message) error {
	from := sgmail.NewEmail(d.from.Name, d.from.Address)
	to := sgmail.NewEmail("", msg.To)
	message := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Body, "")

	if a := msg.Attachment; a != nil {
		att := sgmail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Data))
		att.SetType(a.ContentType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		message.AddAttachment(att)
	}

	resp, err := d.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("%w: sendgrid: %w", ErrConnect, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: sendgrid returned status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: sendgrid returned status %d: %s", ErrRejected, resp.StatusCode, resp.Body)
	}
	return nil
}
