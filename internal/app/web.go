// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/pov_wand/internal/calibration"
	"github.com/relabs-tech/pov_wand/internal/config"
	"github.com/relabs-tech/pov_wand/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// monitorState is the merged latest view of the wand, rebuilt from the
// retained MQTT topics.
type monitorState struct {
	mu         sync.RWMutex
	state      telemetry.StatePayload
	haveState  bool
	offset     telemetry.OffsetPayload
	haveOffset bool
	calib      calibration.State
	haveCalib  bool
}

// snapshot is what the API and the websocket push to browsers.
type snapshot struct {
	Text        string  `json:"text"`
	Mode        string  `json:"mode"`
	Offset      float64 `json:"offset"`
	Calibrating bool    `json:"calibrating"`
	Calibrated  bool    `json:"calibrated"`
	Tempo       string  `json:"tempo"`
}

func (m *monitorState) snapshot() (snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.haveState && !m.haveOffset {
		return snapshot{}, false
	}
	return snapshot{
		Text:        m.state.Text,
		Mode:        string(m.offset.Mode),
		Offset:      m.offset.Offset,
		Calibrating: m.calib.Calibrating,
		Calibrated:  m.calib.Calibrated,
		Tempo:       string(m.calib.Tempo),
	}, true
}

// RunWeb serves the wand monitor: a JSON API, a websocket frame stream and
// the static page, all fed from the daemon's MQTT topics.
func RunWeb() error {
	cfg := config.Get()
	state := &monitorState{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	subs := map[string]func([]byte){
		cfg.TopicState: func(payload []byte) {
			var p telemetry.StatePayload
			if err := json.Unmarshal(payload, &p); err != nil {
				log.Printf("web: state unmarshal error: %v", err)
				return
			}
			state.mu.Lock()
			state.state = p
			state.haveState = true
			state.mu.Unlock()
		},
		cfg.TopicOffset: func(payload []byte) {
			var p telemetry.OffsetPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				log.Printf("web: offset unmarshal error: %v", err)
				return
			}
			state.mu.Lock()
			state.offset = p
			state.haveOffset = true
			state.mu.Unlock()
		},
		cfg.TopicCalibration: func(payload []byte) {
			var p calibration.State
			if err := json.Unmarshal(payload, &p); err != nil {
				log.Printf("web: calibration unmarshal error: %v", err)
				return
			}
			state.mu.Lock()
			state.calib = p
			state.haveCalib = true
			state.mu.Unlock()
		},
	}
	for topic, handle := range subs {
		handle := handle
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			handle(msg.Payload())
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("web: subscribed to %s", topic)
	}

	http.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := state.snapshot()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleMonitorWS(w, r, state)
	})

	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}

// handleMonitorWS pushes snapshots to one browser at 10 Hz until it goes
// away.
func handleMonitorWS(w http.ResponseWriter, r *http.Request, state *monitorState) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		snap, ok := state.snapshot()
		if !ok {
			continue
		}
		if err := conn.WriteJSON(snap); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("web: websocket error: %v", err)
			}
			return
		}
	}
}
