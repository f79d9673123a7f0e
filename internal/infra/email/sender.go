package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
)

// ErrInvalidConfig is returned when provider credentials are missing or malformed.
var ErrInvalidConfig = errors.New("email: invalid config")

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a rendered message through one provider and returns the
// provider's message ID.
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// Config holds the provider credentials and verified sender identity.
type Config struct {
	Provider     string
	APIKey       string
	AccountToken string
	FromAddress  string
	FromName     string
}

func (c Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key is required", ErrInvalidConfig)
	}
	if c.FromAddress == "" {
		return fmt.Errorf("%w: from address is required", ErrInvalidConfig)
	}
	if _, err := mail.ParseAddress(c.FromAddress); err != nil {
		return fmt.Errorf("%w: from address must be a valid email address", ErrInvalidConfig)
	}
	return nil
}

// NewSender builds the sender for cfg.Provider.
func NewSender(cfg Config) (Sender, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "", "resend":
		return NewResendProvider(cfg.APIKey, cfg.FromAddress, cfg.FromName), nil
	case "postmark":
		return NewPostmarkProvider(cfg.APIKey, cfg.AccountToken, cfg.FromAddress, cfg.FromName), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// formatAddress renders "Name <addr>" when a name is given.
func formatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}
