package notification

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESDispatcher sends the composed MIME message as raw content through SES v2.
type SESDispatcher struct {
	client sesAPI
	from   Sender
}

// NewSESDispatcher loads AWS credentials from the default chain.
func NewSESDispatcher(ctx context.Context, region string, from Sender) (*SESDispatcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSESDispatcher(sesv2.NewFromConfig(cfg), from), nil
}

func newSESDispatcher(client sesAPI, from Sender) *SESDispatcher {
	return &SESDispatcher{client: client, from: from}
}

func (d *SESDispatcher) Send(ctx context.Context, msg Message) error {
	raw, err := compose(d.from, msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(d.from.Address),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	}
	if _, err := d.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("%w: ses: %w", ErrRejected, err)
	}
	return nil
}
