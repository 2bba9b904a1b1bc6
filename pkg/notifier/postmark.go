package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkConfig configures the Postmark-backed email sink.
type PostmarkConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"SENDER_EMAIL"`
}

// PostmarkSink delivers email through Postmark's transactional API.
type PostmarkSink struct {
	client *postmark.Client
	sender string
}

// NewPostmarkSink creates a Postmark email sink. All config fields are
// required: a half-configured provider should fail at startup, not at the
// first delivery.
func NewPostmarkSink(cfg PostmarkConfig) (*PostmarkSink, error) {
	if cfg.ServerToken == "" || cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: postmark tokens are required", ErrInvalidSinkConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: sender email is required", ErrInvalidSinkConfig)
	}

	return &PostmarkSink{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		sender: cfg.SenderEmail,
	}, nil
}

func (s *PostmarkSink) Send(ctx context.Context, recipient, subject, body string) (string, error) {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.sender,
		To:       recipient,
		Subject:  subject,
		TextBody: body,
	})
	if err != nil {
		return "", errors.Join(ErrSinkSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return "", errors.Join(ErrSinkSendFailed, fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}
	return resp.MessageID, nil
}
