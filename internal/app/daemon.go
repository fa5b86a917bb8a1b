// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires the wand subsystems into runnable programs.
package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/pov_wand/internal/calibration"
	"github.com/relabs-tech/pov_wand/internal/config"
	"github.com/relabs-tech/pov_wand/internal/haptics"
	"github.com/relabs-tech/pov_wand/internal/motion"
	"github.com/relabs-tech/pov_wand/internal/render"
	"github.com/relabs-tech/pov_wand/internal/scroll"
	"github.com/relabs-tech/pov_wand/internal/sensors"
	"github.com/relabs-tech/pov_wand/internal/session"
	"github.com/relabs-tech/pov_wand/internal/telemetry"
	"github.com/relabs-tech/pov_wand/internal/text"
)

// DaemonOptions selects the motion source and surfaces for one daemon run.
type DaemonOptions struct {
	Source   string // "imu", "gps" or "mock"
	Headless bool   // skip the OLED, frames go to telemetry only
	Demo     bool
}

// RunDaemon displays one message until interrupted or auto-off.
func RunDaemon(message string, opts DaemonOptions) error {
	cfg := config.Get()

	msg := text.Normalize(message)
	if err := text.CheckLength(msg, cfg.MaxMessageGraphemes); err != nil {
		return fmt.Errorf("message: %w", err)
	}
	if bad := text.Validate(msg); len(bad) > 0 {
		sanitized := text.Sanitize(msg)
		log.Printf("daemon: dropping %d unsupported characters, displaying %q", len(bad), sanitized)
		msg = sanitized
	}
	if msg == "" {
		return fmt.Errorf("message: nothing displayable")
	}

	strip := render.NewStrip(msg, int(cfg.CharWidthPX))
	log.Printf("daemon: message %q rasterized to %.0fpx", msg, strip.TextWidth())

	// Display is optional so the daemon can run on a dev machine.
	var oled *render.OLED
	if !opts.Headless {
		var err error
		oled, err = render.OpenOLED(cfg.DisplayI2CAddr, cfg.DisplayWidthPX, cfg.DisplayHeightPX)
		if err != nil {
			log.Printf("daemon: display unavailable, running headless: %v", err)
		} else {
			defer oled.Close()
			if err := oled.Splash(); err != nil {
				log.Printf("daemon: splash: %v", err)
			}
		}
	}

	src, cleanup, err := openSource(cfg, opts)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	hap := openHaptics(cfg)

	sampler := motion.New(src, motion.OptionsFromConfig(cfg))
	calib := calibration.New(hap, calibration.OptionsFromConfig(cfg))

	screenW := float64(cfg.DisplayWidthPX)
	driverOpts := scroll.OptionsFromConfig(cfg, screenW, strip.TextWidth())
	driverOpts.Demo = opts.Demo
	driver := scroll.NewDriver(sampler, calib, driverOpts)

	if oled != nil {
		driver.SubscribeFrames("display", func(f scroll.Frame) {
			if err := oled.Paint(strip, f.Offset); err != nil {
				log.Printf("display: paint error: %v", err)
			}
		})
	}

	pub, err := telemetry.Connect(cfg)
	if err != nil {
		log.Printf("daemon: telemetry disabled: %v", err)
	} else {
		defer pub.Close()
		driver.SubscribeFrames("telemetry", pub.OnFrame)
		calib.Subscribe("telemetry", pub.OnCalibration)
	}

	var brightness session.Brightness
	if oled != nil {
		brightness = oled
	}
	sess := session.New(driver, brightness, hap, session.OptionsFromConfig(cfg))

	done := make(chan struct{})
	sess.Subscribe("daemon", func(e session.Event) {
		switch e.Type {
		case session.EventFallback:
			log.Printf("daemon: motion input unusable (%s), timed sweep active", e.Fallback)
		case session.EventStopped:
			log.Printf("daemon: session stopped (%s)", e.Stop)
			close(done)
		}
	})

	sess.Start()
	if pub != nil {
		pub.PublishState(msg, driver.Mode())
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("daemon: received %v, shutting down", s)
		sess.Stop()
		<-done
	case <-done:
	}

	// Let in-flight frame callbacks drain before surfaces close.
	time.Sleep(50 * time.Millisecond)
	return nil
}

func openSource(cfg *config.Config, opts DaemonOptions) (motion.Source, func(), error) {
	switch opts.Source {
	case "imu", "":
		return sensors.NewMPU9250Source(cfg), nil, nil
	case "gps":
		gps := sensors.NewGPSSource(cfg)
		return gps, func() { gps.Close() }, nil
	case "mock":
		return motion.NewMockSource(4.0, 1.0, time.Second), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown motion source %q", opts.Source)
	}
}

func openHaptics(cfg *config.Config) haptics.Driver {
	if cfg.HapticGPIOPin == "" {
		return haptics.Logger{}
	}
	buzzer, err := haptics.NewBuzzer(cfg.HapticGPIOPin)
	if err != nil {
		log.Printf("daemon: haptics unavailable: %v", err)
		return haptics.Logger{}
	}
	return buzzer
}
