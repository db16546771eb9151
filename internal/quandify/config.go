package quandify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultAuthURL = "https://auth.quandify.com/"
	DefaultAPIURL  = "https://api.quandify.com"

	defaultTimeout = 15 * time.Second
)

// Config defines runtime configuration for the Quandify client.
type Config struct {
	// AccountID and Password are the partner API credentials.
	AccountID string
	Password  string
	// OrganizationID is the GUID whose nodes are aggregated.
	OrganizationID string

	AuthURL string
	APIURL  string
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.AuthURL) == "" {
		c.AuthURL = DefaultAuthURL
	}
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = DefaultAPIURL
	}
	c.APIURL = strings.TrimSuffix(c.APIURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Validate checks that the config can plausibly talk to the vendor API.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AccountID) == "" {
		return fmt.Errorf("quandify account_id is required")
	}
	if err := ValidateGUID("account_id", c.AccountID); err != nil {
		return err
	}
	if c.Password == "" {
		return fmt.Errorf("quandify password is required")
	}
	if err := ValidateOrganizationID(c.OrganizationID); err != nil {
		return err
	}
	return nil
}

// ValidateGUID enforces the canonical hyphenated GUID form the partner API
// uses for account and organization ids.
func ValidateGUID(field, id string) error {
	if len(id) != 36 {
		return fmt.Errorf("%s %q is not a GUID", field, id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %q is not a GUID: %w", field, id, err)
	}
	return nil
}

// ValidateOrganizationID enforces the GUID form the consumption endpoint
// expects in its path.
func ValidateOrganizationID(id string) error {
	return ValidateGUID("organization_id", id)
}
