// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/pov_wand/internal/app"
	"github.com/relabs-tech/pov_wand/internal/config"
)

func main() {
	configPath := flag.String("config", "./pov_config.txt", "path to configuration file")
	message := flag.String("message", "HELLO", "text to display")
	source := flag.String("source", "imu", "motion source: imu, gps or mock")
	headless := flag.Bool("headless", false, "run without the OLED panel")
	demo := flag.Bool("demo", false, "demo mode: mock motion labeled as such")
	flag.Parse()

	log.Println("starting pov-wand daemon (motion -> scroll -> display)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts := app.DaemonOptions{
		Source:   *source,
		Headless: *headless,
		Demo:     *demo,
	}
	if *demo {
		opts.Source = "mock"
	}

	if err := app.RunDaemon(*message, opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
