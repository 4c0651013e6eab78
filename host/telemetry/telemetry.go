// Package telemetry periodically reads back the board's channel settings and
// publishes them over MQTT, one retained topic per channel, so dashboards can
// show what a device is actually running.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"gopulse/host/config"
	"gopulse/protocol"
)

// Source is the slice of the device the publisher needs.
type Source interface {
	Readback(ch protocol.Channel) (uint16, uint8, error)
}

// Sample is one published readback.
type Sample struct {
	Channel string `json:"channel"`
	Period  uint16 `json:"period"`
	Units   string `json:"units"`
	Flags   uint8  `json:"flags"`
	Time    string `json:"time"`
}

// Publisher drives the readback/publish loop.
type Publisher struct {
	client   paho.Client
	src      Source
	prefix   string
	hostID   string
	interval time.Duration
}

// NewPublisher connects to the broker named in cfg. The client identity is
// derived from the machine ID so two hosts never collide on the broker.
func NewPublisher(cfg config.TelemetryConfig, src Source) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("telemetry broker not configured")
	}

	hostID, err := machineid.ID()
	if err != nil {
		glog.Warningf("machine ID unavailable, using fallback: %v", err)
		hostID = "unknown-host"
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("gopulse-" + hostID).
		SetAutoReconnect(true)

	client := paho.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to broker %s: %w", cfg.Broker, err)
	}

	interval := time.Duration(cfg.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}

	return &Publisher{
		client:   client,
		src:      src,
		prefix:   cfg.TopicPrefix,
		hostID:   hostID,
		interval: interval,
	}, nil
}

// Run publishes until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	tick := time.NewTicker(p.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			p.publishOnce()
		}
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func (p *Publisher) publishOnce() {
	for _, ch := range []protocol.Channel{protocol.ChannelFast, protocol.ChannelSlow} {
		period, flags, err := p.src.Readback(ch)
		if err != nil {
			glog.Warningf("readback %s failed: %v", ch, err)
			continue
		}

		payload, err := json.Marshal(newSample(ch, period, flags, time.Now()))
		if err != nil {
			glog.Errorf("marshal sample: %v", err)
			continue
		}

		topic := p.topicFor(ch)
		glog.V(1).Infof("publish %s: %s", topic, payload)
		p.client.Publish(topic, 0, true, payload)
	}
}

func (p *Publisher) topicFor(ch protocol.Channel) string {
	return p.prefix + "/" + p.hostID + "/" + ch.String()
}

func newSample(ch protocol.Channel, period uint16, flags uint8, now time.Time) Sample {
	units := "us"
	if ch == protocol.ChannelSlow {
		units = "ms"
	}
	return Sample{
		Channel: ch.String(),
		Period:  period,
		Units:   units,
		Flags:   flags,
		Time:    now.UTC().Format(time.RFC3339),
	}
}
