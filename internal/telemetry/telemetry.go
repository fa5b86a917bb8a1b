// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry mirrors the session over MQTT so off-wand consumers
// (the web monitor, scripts) can watch it. Everything here is best effort:
// publish failures are logged and dropped, never fed back into the session.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/pov_wand/internal/calibration"
	"github.com/relabs-tech/pov_wand/internal/config"
	"github.com/relabs-tech/pov_wand/internal/scroll"
)

// StatePayload is the retained session snapshot on the state topic.
type StatePayload struct {
	Text string      `json:"text"`
	Mode scroll.Mode `json:"mode"`
	At   time.Time   `json:"at"`
}

// OffsetPayload is the throttled offset sample on the offset topic.
type OffsetPayload struct {
	Offset float64     `json:"offset"`
	Mode   scroll.Mode `json:"mode"`
	At     time.Time   `json:"at"`
}

// Publisher pushes session, offset and calibration snapshots to the broker.
type Publisher struct {
	client mqtt.Client

	topicState       string
	topicOffset      string
	topicCalibration string
	offsetEvery      time.Duration

	mu         sync.Mutex
	lastOffset time.Time
}

// Connect dials the broker from the application config.
func Connect(cfg *config.Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDaemon)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	log.Printf("telemetry: connected to MQTT broker at %s", cfg.MQTTBroker)

	return &Publisher{
		client:           client,
		topicState:       cfg.TopicState,
		topicOffset:      cfg.TopicOffset,
		topicCalibration: cfg.TopicCalibration,
		offsetEvery:      time.Duration(cfg.OffsetPublishMS) * time.Millisecond,
	}, nil
}

// PublishState pushes a retained session snapshot.
func (p *Publisher) PublishState(text string, mode scroll.Mode) {
	p.publish(p.topicState, StatePayload{Text: text, Mode: mode, At: time.Now()})
}

// OnFrame is a scroll frame callback that republishes the offset, throttled
// to the configured interval.
func (p *Publisher) OnFrame(f scroll.Frame) {
	p.mu.Lock()
	if f.At.Sub(p.lastOffset) < p.offsetEvery {
		p.mu.Unlock()
		return
	}
	p.lastOffset = f.At
	p.mu.Unlock()

	p.publish(p.topicOffset, OffsetPayload{Offset: f.Offset, Mode: f.Mode, At: f.At})
}

// OnCalibration is a calibration broadcast callback that mirrors each state
// change to the broker.
func (p *Publisher) OnCalibration(st calibration.State) {
	p.publish(p.topicCalibration, st)
}

func (p *Publisher) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("telemetry: marshal error (%s): %v", topic, err)
		return
	}
	if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("MQTT publish error (%s): %v", topic, token.Error())
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
