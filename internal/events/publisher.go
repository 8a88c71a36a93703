// File: internal/events/publisher.go

// Package events forwards browser events to an external MQTT broker so other
// tools can observe the session. Delivery is best effort: broker trouble is
// logged, never surfaced to the dispatcher.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/tinkertool/tinker/api/schemas"
	"github.com/tinkertool/tinker/internal/config"
	"go.uber.org/zap"
)

const (
	topicNavigation    = "browser/navigation"
	topicTabCreated    = "browser/tabs/created"
	topicTabURLChanged = "browser/tabs/url"
	topicError         = "browser/error"

	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second

	// qosAtLeastOnce: events may be duplicated but not lost.
	qosAtLeastOnce = 1
)

// Publisher is an at-least-once MQTT forwarder for browser events. With
// TestMode set (configuration or TINKER_TEST_MODE=1) Connect and Publish
// succeed without touching the network.
type Publisher struct {
	logger *zap.Logger
	cfg    config.EventsConfig
	client mqtt.Client
}

// NewPublisher builds a publisher from the events configuration.
func NewPublisher(logger *zap.Logger, cfg config.EventsConfig) *Publisher {
	return &Publisher{
		logger: logger.Named("events"),
		cfg:    cfg,
	}
}

// Connect dials the broker. Failures are logged and reported, but callers
// may keep running without an event feed.
func (p *Publisher) Connect() error {
	if p.cfg.TestMode || !p.cfg.Enabled {
		return nil
	}

	broker := fmt.Sprintf("tcp://%s:%d", p.cfg.Host, p.cfg.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(p.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(connectTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.logger.Warn("MQTT connect still pending; continuing in background",
			zap.String("broker", broker))
	} else if err := token.Error(); err != nil {
		p.logger.Warn("MQTT connect failed", zap.String("broker", broker), zap.Error(err))
		return fmt.Errorf("connecting to %s: %w", broker, err)
	}

	p.client = client
	p.logger.Info("Connected to event broker", zap.String("broker", broker))
	return nil
}

// Publish forwards one event to its topic. Broker failures are logged and
// swallowed; only an unpublishable event (no topic) is an error.
func (p *Publisher) Publish(ev schemas.Event) error {
	if p.cfg.TestMode || !p.cfg.Enabled {
		return nil
	}
	if p.client == nil {
		return nil
	}

	topic, err := topicFor(ev.Type)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	token := p.client.Publish(topic, qosAtLeastOnce, false, payload)
	if token.WaitTimeout(publishTimeout) {
		if err := token.Error(); err != nil {
			p.logger.Warn("Event publish failed",
				zap.String("topic", topic), zap.Error(err))
		}
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func topicFor(t schemas.EventType) (string, error) {
	switch t {
	case schemas.EventNavigation:
		return topicNavigation, nil
	case schemas.EventTabCreated:
		return topicTabCreated, nil
	case schemas.EventTabURLChanged:
		return topicTabURLChanged, nil
	case schemas.EventError:
		return topicError, nil
	default:
		return "", fmt.Errorf("no topic for event type %q", t)
	}
}
