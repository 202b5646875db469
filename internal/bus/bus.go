// Package bus wraps an MQTT connection, translating the room's topic
// grammar and QoS requirements into a small publish/subscribe API.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/igoryan-dao/agent-ops-room/internal/envelope"
)

// Config describes how to reach the broker.
type Config struct {
	Host            string
	Port            int
	ClientIDPrefix  string
	KeepAlive       time.Duration
	ConnectTimeout  time.Duration
}

// Handler processes one envelope delivered on topic.
type Handler func(topic string, env envelope.Envelope)

// Client is a thin wrapper around a paho MQTT client tuned for the room's
// traffic pattern: small JSON payloads, QoS 1, long-lived subscriptions that
// must survive reconnects.
type Client struct {
	cfg    Config
	client mqtt.Client
}

// Connect dials the broker and returns a ready Client. The client reconnects
// automatically after a lost connection; the OnConnect handler below only
// logs, and subscriptions made with Subscribe are not sent to the broker
// again after a reconnect.
func Connect(ctx context.Context, cfg Config, clientSuffix string) (*Client, error) {
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60 * time.Second
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.ClientIDPrefix, clientSuffix))
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("[bus] connected to %s:%d as %s", cfg.Host, cfg.Port, opts.ClientID)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("[bus] connection lost: %v; reconnecting", err)
	})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("bus: connect timed out after %s", cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("bus: connect failed: %w", err)
	}

	return &Client{cfg: cfg, client: c}, nil
}

// Subscribe registers handler for every message delivered on topic, which
// may use MQTT's "+" (single-level) or "#" (multi-level) wildcards. Messages
// that fail to decode as an envelope are logged and dropped, matching the
// malformed-envelope handling spec.md requires of every subscriber.
func (c *Client) Subscribe(topic string, handler Handler) error {
	token := c.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var env envelope.Envelope
		if err := json.Unmarshal(msg.Payload(), &env); err != nil {
			log.Printf("[bus] dropping malformed envelope on %s: %v", msg.Topic(), err)
			return
		}
		handler(msg.Topic(), env)
	})
	token.Wait()
	return token.Error()
}

// Publish sends env to topic at QoS 1 (at-least-once), matching spec.md's
// duplicate-delivery expectation that every consumer is idempotent or
// tolerant of redelivery.
func (c *Client) Publish(topic string, env envelope.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("bus: encode envelope: %w", err)
	}
	token := c.client.Publish(topic, 1, false, raw)
	token.Wait()
	return token.Error()
}

// Disconnect closes the connection, waiting up to quiesceMillis for
// in-flight publishes to drain.
func (c *Client) Disconnect(quiesceMillis uint) {
	c.client.Disconnect(quiesceMillis)
}
