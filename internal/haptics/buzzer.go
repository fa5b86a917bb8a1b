// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package haptics

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Buzzer drives a small vibration motor or piezo on a GPIO pin. Pulse
// lengths distinguish the three feedback kinds.
type Buzzer struct {
	pin gpio.PinIO
}

// NewBuzzer initializes periph and resolves the named GPIO pin.
func NewBuzzer(pinName string) (*Buzzer, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("haptics: periph host init: %w", err)
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("haptics: GPIO pin %q not found", pinName)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("haptics: GPIO pin %q out: %w", pinName, err)
	}
	return &Buzzer{pin: pin}, nil
}

func (b *Buzzer) pulse(d time.Duration) {
	// Pulses run detached so a slow pin write can never stall the motion
	// update path. Errors are logged and dropped.
	go func() {
		if err := b.pin.Out(gpio.High); err != nil {
			log.Printf("haptics: pin high: %v", err)
			return
		}
		time.Sleep(d)
		if err := b.pin.Out(gpio.Low); err != nil {
			log.Printf("haptics: pin low: %v", err)
		}
	}()
}

func (b *Buzzer) Tick()    { b.pulse(20 * time.Millisecond) }
func (b *Buzzer) Success() { b.pulse(150 * time.Millisecond) }
func (b *Buzzer) Warning() { b.pulse(60 * time.Millisecond) }
