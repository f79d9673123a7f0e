package email

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"
)

var _ Sender = (*PostmarkProvider)(nil)

// PostmarkProvider sends emails using Postmark's transactional API.
type PostmarkProvider struct {
	client      *postmark.Client
	fromAddress string
	fromName    string
}

// NewPostmarkProvider creates a new Postmark email provider.
func NewPostmarkProvider(serverToken, accountToken, fromAddress, fromName string) *PostmarkProvider {
	return &PostmarkProvider{
		client:      postmark.NewClient(serverToken, accountToken),
		fromAddress: fromAddress,
		fromName:    fromName,
	}
}

// Send delivers an email via Postmark and returns the message ID.
func (p *PostmarkProvider) Send(ctx context.Context, msg *Message) (string, error) {
	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:       formatAddress(p.fromName, p.fromAddress),
		To:         formatAddress(msg.ToName, msg.To),
		Subject:    msg.Subject,
		HTMLBody:   msg.HTML,
		TextBody:   msg.Text,
		Tag:        "notification",
		TrackOpens: true,
	})
	if err != nil {
		return "", fmt.Errorf("postmark: %w", err)
	}
	if resp.ErrorCode > 0 {
		return "", fmt.Errorf("postmark: %d - %s", resp.ErrorCode, resp.Message)
	}
	return resp.MessageID, nil
}
