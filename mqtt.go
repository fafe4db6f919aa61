package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTBridge subscribes to a topic carrying JSON-encoded {"to","message"}
// payloads and enqueues each onto a Gateway, giving operators a
// fire-and-forget submission path alongside the HTTP API.
type MQTTBridge struct {
	client mqtt.Client
	gw     *Gateway
	logger *slog.Logger
	topic  string
}

// NewMQTTBridge builds a paho client configured from cfg but does not
// connect; call Run to connect and start consuming.
func NewMQTTBridge(cfg *Config, gw *Gateway, logger *slog.Logger) *MQTTBridge {
	b := &MQTTBridge{gw: gw, logger: logger, topic: cfg.MQTTTopic}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if cfg.MQTTUser != "" {
		opts.SetUsername(cfg.MQTTUser)
		opts.SetPassword(cfg.MQTTPass)
	}

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		if token := c.Subscribe(b.topic, 1, b.handle); token.Wait() && token.Error() != nil {
			b.logger.Error("mqtt subscribe failed", "topic", b.topic, "error", token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		b.logger.Warn("mqtt connection lost", "error", err)
	})

	b.client = mqtt.NewClient(opts)
	return b
}

// Run connects the MQTT client and blocks until ctx is canceled, at which
// point it disconnects cleanly.
func (b *MQTTBridge) Run(ctx context.Context) error {
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	b.logger.Info("mqtt bridge connected", "topic", b.topic)

	<-ctx.Done()
	b.client.Disconnect(250)
	return nil
}

// Close disconnects the MQTT client immediately, for use outside the Run
// goroutine during shutdown.
func (b *MQTTBridge) Close() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
}

func (b *MQTTBridge) handle(_ mqtt.Client, msg mqtt.Message) {
	var req struct {
		To      string `json:"to"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		b.logger.Error("mqtt payload decode failed", "error", err)
		return
	}
	if req.To == "" || req.Message == "" {
		b.logger.Error("mqtt payload missing to/message", "payload", string(msg.Payload()))
		return
	}

	id, err := b.gw.Enqueue(SMSRequest{To: req.To, Message: req.Message})
	if err != nil {
		b.logger.Error("mqtt enqueue failed", "to", req.To, "error", err)
		return
	}
	b.logger.Info("sms queued via mqtt", "id", id, "to", req.To)
}
