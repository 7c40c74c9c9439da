package mqttbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rutosms/internal/constants"
	"rutosms/internal/errors"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// Handler is invoked once per inbound message on a subscribed topic. Paho
// delivers messages on its own goroutines, so handlers must be safe to run
// concurrently.
type Handler func(topic string, payload []byte)

// Client is the bus surface consumed by the bridge engine.
type Client interface {
	Connect(ctx context.Context) error
	Subscribe(topic string, handler Handler) error
	Publish(topic string, payload []byte) error
	PublishRetained(topic string, payload []byte) error
	IsConnected() bool
	Disconnect()
}

// Options configures the paho-backed client.
type Options struct {
	BrokerURL    string
	ClientID     string
	Username     string
	Password     string
	QoS          byte
	KeepAliveSec int

	// WillTopic, if set, gets a retained "0" published by the broker when
	// the connection drops uncleanly.
	WillTopic string
}

type pahoClient struct {
	client mqtt.Client
	qos    byte
	logger *logrus.Logger

	mu            sync.Mutex
	subscriptions map[string]Handler
}

// NewClient creates an MQTT bus client. Subscriptions are tracked and
// replayed after every reconnect, so a broker restart does not silently
// drop the command topics.
func NewClient(opts Options, logger *logrus.Logger) Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	c := &pahoClient{
		qos:           opts.QoS,
		logger:        logger,
		subscriptions: make(map[string]Handler),
	}

	keepAlive := opts.KeepAliveSec
	if keepAlive <= 0 {
		keepAlive = constants.DefaultMQTTKeepAliveSec
	}

	pahoOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetKeepAlive(time.Duration(keepAlive) * time.Second).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetOrderMatters(false)

	if opts.WillTopic != "" {
		pahoOpts.SetWill(opts.WillTopic, "0", opts.QoS, true)
	}

	pahoOpts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.WithField("broker", opts.BrokerURL).Info("Connected to MQTT broker")
		c.resubscribe()
	})
	pahoOpts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.WithError(err).Warn("MQTT connection lost, reconnecting")
	})

	c.client = mqtt.NewClient(pahoOpts)
	return c
}

func (c *pahoClient) Connect(ctx context.Context) error {
	token := c.client.Connect()
	if err := c.wait(ctx, token); err != nil {
		return errors.Wrap(err, errors.ErrCodeBusConnect, "failed to connect to broker")
	}
	return nil
}

func (c *pahoClient) Subscribe(topic string, handler Handler) error {
	c.mu.Lock()
	c.subscriptions[topic] = handler
	c.mu.Unlock()

	token := c.client.Subscribe(topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if err := c.waitToken(token); err != nil {
		return errors.Wrap(err, errors.ErrCodeBusSubscribe, fmt.Sprintf("failed to subscribe to %s", topic))
	}
	return nil
}

func (c *pahoClient) Publish(topic string, payload []byte) error {
	return c.publish(topic, payload, false)
}

func (c *pahoClient) PublishRetained(topic string, payload []byte) error {
	return c.publish(topic, payload, true)
}

func (c *pahoClient) publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, c.qos, retained, payload)
	if err := c.waitToken(token); err != nil {
		return errors.Wrap(err, errors.ErrCodeBusPublish, fmt.Sprintf("failed to publish to %s", topic))
	}
	return nil
}

func (c *pahoClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

func (c *pahoClient) Disconnect() {
	c.client.Disconnect(constants.DefaultMQTTQuiesceMs)
}

// resubscribe replays all tracked subscriptions after a reconnect.
func (c *pahoClient) resubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for topic, handler := range c.subscriptions {
		h := handler
		token := c.client.Subscribe(topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
			h(msg.Topic(), msg.Payload())
		})
		if err := c.waitToken(token); err != nil {
			c.logger.WithError(err).WithField("topic", topic).Error("Failed to resubscribe after reconnect")
		}
	}
}

// wait blocks on a paho token until completion or context cancellation.
func (c *pahoClient) wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	}
}

func (c *pahoClient) waitToken(token mqtt.Token) error {
	if !token.WaitTimeout(constants.DefaultMQTTTokenTimeoutSec * time.Second) {
		return errors.New(errors.ErrCodeTimeout, "broker did not acknowledge in time")
	}
	return token.Error()
}
