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
	flag.Parse()

	log.Println("starting pov-wand web monitor (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Println("Note: live data requires the daemon to be running (./povd)")

	if err := app.RunWeb(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
