package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/quandify2mqtt/quandify2mqtt/internal/log"
	"github.com/quandify2mqtt/quandify2mqtt/internal/poller"
)

const (
	defaultTopicPrefix     = "quandify2mqtt"
	defaultDiscoveryPrefix = "homeassistant"
	defaultConnectTimeout  = 10 * time.Second

	qosAtLeastOnce byte = 1
)

// Config defines runtime configuration for the MQTT publisher.
type Config struct {
	BrokerURL string
	Username  string
	Password  string
	// ClientID defaults to quandify2mqtt plus the organization prefix.
	ClientID string

	TopicPrefix     string
	DiscoveryPrefix string
	OrganizationID  string

	ConnectTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.TopicPrefix == "" {
		c.TopicPrefix = defaultTopicPrefix
	}
	if c.DiscoveryPrefix == "" {
		c.DiscoveryPrefix = defaultDiscoveryPrefix
	}
	if c.ClientID == "" {
		suffix := c.OrganizationID
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		c.ClientID = "quandify2mqtt-" + suffix
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	return c
}

// conn is the thin broker seam the publisher runs on.
type conn interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	Disconnect()
}

type pahoConn struct {
	client mqtt.Client
}

func (c *pahoConn) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if token := c.client.Publish(topic, qos, retained, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (c *pahoConn) Subscribe(topic string, handler func(string, []byte)) error {
	callback := func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	}
	if token := c.client.Subscribe(topic, qosAtLeastOnce, callback); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (c *pahoConn) Disconnect() {
	c.client.Disconnect(250)
}

// Publisher mirrors coordinator snapshots into Home Assistant via MQTT
// discovery. Discovery documents, states and availability are all retained
// so entities survive broker and Home Assistant restarts.
type Publisher struct {
	conn   conn
	topics Topics

	mu   sync.Mutex
	last *poller.Snapshot
}

func newPublisher(c conn, cfg Config) *Publisher {
	return &Publisher{
		conn:   c,
		topics: NewTopics(cfg.TopicPrefix, cfg.DiscoveryPrefix, cfg.OrganizationID),
	}
}

// Connect dials the broker and announces the entities. The last will flips
// availability to offline if the bridge dies without a clean shutdown.
func Connect(ctx context.Context, cfg Config) (*Publisher, error) {
	cfg = cfg.withDefaults()
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("mqtt broker url is required")
	}

	topics := NewTopics(cfg.TopicPrefix, cfg.DiscoveryPrefix, cfg.OrganizationID)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetWill(topics.Availability(), PayloadNotAvailable, qosAtLeastOnce, true)

	p := newPublisher(nil, cfg)
	opts.OnConnect = func(_ mqtt.Client) {
		p.onConnect(ctx)
	}

	client := mqtt.NewClient(opts)
	p.conn = &pahoConn{client: client}
	token := client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return nil, fmt.Errorf("mqtt connect: %w", token.Error())
		}
	case <-ctx.Done():
		// With connect retry enabled the token only completes on first
		// broker contact, which may never happen.
		client.Disconnect(0)
		return nil, ctx.Err()
	}

	log.Ctx(ctx).InfoContext(ctx, "mqtt connected",
		"broker", cfg.BrokerURL,
		"client_id", cfg.ClientID,
		"topic_prefix", cfg.TopicPrefix)
	return p, nil
}

// HandleSnapshot implements poller.Listener.
func (p *Publisher) HandleSnapshot(ctx context.Context, snap poller.Snapshot) {
	p.mu.Lock()
	p.last = &snap
	p.mu.Unlock()

	if err := p.publishSnapshot(snap); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "mqtt publish failed", "error", err)
	}
}

// Close marks the bridge offline and drops the broker connection.
func (p *Publisher) Close() {
	_ = p.conn.Publish(p.topics.Availability(), qosAtLeastOnce, true, []byte(PayloadNotAvailable))
	p.conn.Disconnect()
}

// onConnect runs on every (re)connect: announce entities, restore state and
// watch for Home Assistant rebirth.
func (p *Publisher) onConnect(ctx context.Context) {
	if err := p.republish(); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "mqtt announce failed", "error", err)
	}
	err := p.conn.Subscribe(p.topics.HomeAssistantStatus(), func(_ string, payload []byte) {
		if string(payload) != PayloadAvailable {
			return
		}
		log.Ctx(ctx).InfoContext(ctx, "home assistant came up, republishing")
		if err := p.republish(); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "mqtt republish failed", "error", err)
		}
	})
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "mqtt status subscribe failed", "error", err)
	}
}

// republish pushes the discovery documents and the latest known state.
func (p *Publisher) republish() error {
	if err := p.publishDiscovery(); err != nil {
		return err
	}

	p.mu.Lock()
	last := p.last
	p.mu.Unlock()

	if last == nil {
		// Nothing fetched yet; the entities exist but are unavailable.
		return p.conn.Publish(p.topics.Availability(), qosAtLeastOnce, true, []byte(PayloadNotAvailable))
	}
	return p.publishSnapshot(*last)
}

func (p *Publisher) publishDiscovery() error {
	configs := map[string]SensorModel{
		p.topics.DailyConfig():      DailySensor(p.topics),
		p.topics.HourlyConfig():     HourlySensor(p.topics),
		p.topics.LastUpdateConfig(): LastUpdateSensor(p.topics),
	}
	for topic, sensor := range configs {
		payload, err := json.Marshal(sensor)
		if err != nil {
			return fmt.Errorf("encode discovery: %w", err)
		}
		if err := p.conn.Publish(topic, qosAtLeastOnce, true, payload); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishSnapshot(snap poller.Snapshot) error {
	// A failed refresh leaves the retained states on the broker untouched
	// and only flips availability.
	if !snap.HasData() || snap.Stale {
		return p.conn.Publish(p.topics.Availability(), qosAtLeastOnce, true, []byte(PayloadNotAvailable))
	}

	states := map[string]string{
		p.topics.DailyState():      formatLiters(snap.Daily.VolumeLiters),
		p.topics.HourlyState():     formatLiters(snap.Hourly.VolumeLiters),
		p.topics.LastUpdateState(): snap.LastSuccess.Format(time.RFC3339),
	}
	for topic, state := range states {
		if err := p.conn.Publish(topic, qosAtLeastOnce, true, []byte(state)); err != nil {
			return err
		}
	}
	return p.conn.Publish(p.topics.Availability(), qosAtLeastOnce, true, []byte(PayloadAvailable))
}

func formatLiters(volume float64) string {
	return strconv.FormatFloat(volume, 'f', 2, 64)
}
