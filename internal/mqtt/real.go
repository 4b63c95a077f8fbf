package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/unlock-gate/internal/logic"
)

const (
	outboxCapacity = 100
	publishTimeout = 5 * time.Second
)

type subscription struct {
	qos     byte
	handler MessageHandler
}

// RealClient talks to an actual MQTT broker.
//
// It never blocks startup on the broker: paho connects and reconnects in
// the background, messages published while offline wait in an outbox, and
// every (re)connect replays the outbox and restores subscriptions.
type RealClient struct {
	client paho.Client
	logger *zap.Logger

	mu        sync.Mutex
	out       *outbox
	subs      map[string]subscription
	connected bool // at least once
}

// NewRealClient creates a client for broker and starts connecting.
// The broker keeps a retained OFFLINE message on TopicSystem as last will.
func NewRealClient(broker, clientID string, logger *zap.Logger) *RealClient {
	c := &RealClient{
		logger: logger,
		out:    newOutbox(outboxCapacity),
		subs:   make(map[string]subscription),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	c.client = paho.NewClient(opts)
	c.client.Connect()
	return c
}

func (c *RealClient) onConnect(client paho.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reconnect := c.connected
	c.connected = true
	c.logger.Info("mqtt connected", zap.Bool("reconnect", reconnect))

	for topic, s := range c.subs {
		if err := c.subscribeLocked(topic, s); err != nil {
			c.logger.Error("mqtt resubscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}

	msgs, dropped := c.out.drain()
	if dropped > 0 {
		c.logger.Warn("mqtt outbox overflowed while offline", zap.Int("dropped", dropped))
	}
	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		msgs = append(msgs, bufferedMsg{topic: TopicSystem, payload: payload, qos: 1})
	}
	for _, m := range msgs {
		if err := c.send(m); err != nil {
			c.logger.Warn("mqtt replay failed", zap.String("topic", m.topic), zap.Error(err))
		}
	}
	if len(msgs) > 0 {
		c.logger.Info("mqtt replayed buffered messages", zap.Int("count", len(msgs)))
	}
}

func (c *RealClient) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("mqtt connection lost", zap.Error(err))
}

// IsConnected reports whether the connection is currently up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

func (c *RealClient) send(m bufferedMsg) error {
	token := c.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// publish sends m now or queues it for the next connect.
func (c *RealClient) publish(m bufferedMsg) error {
	c.mu.Lock()
	if !c.client.IsConnectionOpen() {
		if c.out.push(m) {
			c.logger.Warn("mqtt outbox full, dropping oldest", zap.Int("capacity", outboxCapacity))
		}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.send(m)
}

// Publish sends a gate event.
func (c *RealClient) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: a latched condition is reported exactly once per session
	return c.publish(bufferedMsg{topic: Topic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return c.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (c *RealClient) subscribeLocked(topic string, s subscription) error {
	token := c.client.Subscribe(topic, s.qos, func(_ paho.Client, msg paho.Message) {
		if err := s.handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("mqtt message rejected", zap.String("topic", msg.Topic()), zap.Error(err))
		}
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler for topic. When offline the subscription is
// made on the next connect.
func (c *RealClient) Subscribe(topic string, qos byte, handler MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := subscription{qos: qos, handler: handler}
	c.subs[topic] = s
	if !c.client.IsConnectionOpen() {
		return nil
	}
	return c.subscribeLocked(topic, s)
}

// Unsubscribe removes the handlers for topics.
func (c *RealClient) Unsubscribe(topics ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		delete(c.subs, t)
	}
	if !c.client.IsConnectionOpen() {
		return nil
	}
	token := c.client.Unsubscribe(topics...)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("unsubscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
