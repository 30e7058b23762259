package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds configuration for Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// PublishableKey is the Stripe publishable key for frontend (pk_test_xxx or pk_live_xxx)
	PublishableKey string `json:"publishable_key" mapstructure:"publishable_key"`

	// IsTestMode indicates if using Stripe test mode
	IsTestMode bool `json:"is_test_mode" mapstructure:"is_test_mode"`

	// DefaultCurrency is the default settlement currency (e.g. "usd")
	DefaultCurrency string `json:"default_currency" mapstructure:"default_currency"`

	// StatementDescriptor appears on the cardholder's statement. Stripe
	// caps suffixes at 22 characters.
	StatementDescriptor string `json:"statement_descriptor" mapstructure:"statement_descriptor"`
}

// DefaultStripeConfig returns a default configuration for development/testing
func DefaultStripeConfig() *StripeConfig {
	return &StripeConfig{
		IsTestMode:          true,
		DefaultCurrency:     "usd",
		StatementDescriptor: "VICEMETER",
	}
}

// Configured reports whether a secret key is present at all. An
// unconfigured processor is a legal deployment: previews work, settles
// that would charge do not.
func (c *StripeConfig) Configured() bool {
	return c != nil && c.SecretKey != ""
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}

	// Validate key format
	if c.IsTestMode {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_test" {
			return fmt.Errorf("stripe: test mode enabled but secret key is not a test key")
		}
	} else {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_live" {
			return fmt.Errorf("stripe: live mode enabled but secret key is not a live key")
		}
	}

	if c.DefaultCurrency == "" {
		return fmt.Errorf("stripe: default currency is required")
	}

	return nil
}

// InitStripeClient initializes the Stripe client with the configured API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}
