package config

import (
	"fmt"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/quandify2mqtt/quandify2mqtt/internal/hass"
	"github.com/quandify2mqtt/quandify2mqtt/internal/quandify"
)

// Config is the parsed bridge configuration. Fields are populated when
// lflag.Configure runs.
type Config struct {
	AccountID      string
	Password       string
	OrganizationID string
	AuthURL        string
	APIURL         string

	PollInterval time.Duration
	HTTPListen   string

	MQTTBroker      string
	MQTTUsername    string
	MQTTPassword    string
	MQTTClientID    string
	TopicPrefix     string
	DiscoveryPrefix string
	MQTTDisabled    bool
}

// Configured registers the bridge flags and returns the config that will
// hold their values after lflag.Configure.
func Configured() *Config {
	cfg := &Config{}

	// honor PORT when running on a PaaS
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	accountID := lflag.RequiredString("account-id", "Quandify partner account id")
	password := lflag.RequiredString("password", "Quandify partner password")
	organizationID := lflag.RequiredString("organization-id", "Organization GUID whose nodes are aggregated")
	authURL := lflag.String("auth-url", quandify.DefaultAuthURL, "Quandify auth endpoint")
	apiURL := lflag.String("api-url", quandify.DefaultAPIURL, "Quandify API base URL")
	pollInterval := lflag.Duration("poll-interval", time.Hour, "How often to fetch consumption (minimum 1m)")
	httpListen := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	mqttBroker := lflag.String("mqtt-broker", "tcp://127.0.0.1:1883", "MQTT broker URL")
	mqttUsername := lflag.String("mqtt-username", "", "MQTT username")
	mqttPassword := lflag.String("mqtt-password", "", "MQTT password")
	mqttClientID := lflag.String("mqtt-client-id", "", "MQTT client id (defaults to one derived from the organization)")
	topicPrefix := lflag.String("topic-prefix", "quandify2mqtt", "Prefix for state and availability topics")
	discoveryPrefix := lflag.String("discovery-prefix", "homeassistant", "Home Assistant discovery prefix")
	mqttDisable := lflag.Bool("mqtt-disable", false, "Disable MQTT publishing and run metrics-only")

	lflag.Do(func() {
		cfg.AccountID = *accountID
		cfg.Password = *password
		cfg.OrganizationID = *organizationID
		cfg.AuthURL = *authURL
		cfg.APIURL = *apiURL
		cfg.PollInterval = *pollInterval
		cfg.HTTPListen = *httpListen
		cfg.MQTTBroker = *mqttBroker
		cfg.MQTTUsername = *mqttUsername
		cfg.MQTTPassword = *mqttPassword
		cfg.MQTTClientID = *mqttClientID
		cfg.TopicPrefix = *topicPrefix
		cfg.DiscoveryPrefix = *discoveryPrefix
		cfg.MQTTDisabled = *mqttDisable
	})

	return cfg
}

// Validate checks cross-field constraints that lflag cannot express.
func (c *Config) Validate() error {
	if err := quandify.ValidateGUID("account-id", c.AccountID); err != nil {
		return err
	}
	if err := quandify.ValidateOrganizationID(c.OrganizationID); err != nil {
		return err
	}
	if !c.MQTTDisabled && c.MQTTBroker == "" {
		return fmt.Errorf("mqtt-broker is required unless mqtt-disable is set")
	}
	return nil
}

// Quandify returns the vendor client configuration.
func (c *Config) Quandify() quandify.Config {
	return quandify.Config{
		AccountID:      c.AccountID,
		Password:       c.Password,
		OrganizationID: c.OrganizationID,
		AuthURL:        c.AuthURL,
		APIURL:         c.APIURL,
	}
}

// MQTT returns the publisher configuration.
func (c *Config) MQTT() hass.Config {
	return hass.Config{
		BrokerURL:       c.MQTTBroker,
		Username:        c.MQTTUsername,
		Password:        c.MQTTPassword,
		ClientID:        c.MQTTClientID,
		TopicPrefix:     c.TopicPrefix,
		DiscoveryPrefix: c.DiscoveryPrefix,
		OrganizationID:  c.OrganizationID,
	}
}
