// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/relabs-tech/pov_wand/internal/app"
	"github.com/relabs-tech/pov_wand/internal/config"
	"github.com/relabs-tech/pov_wand/internal/text"
)

func main() {
	configPath := flag.String("config", "./pov_config.txt", "path to configuration file")
	message := flag.String("message", "HELLO", "text to preview")
	speed := flag.Float64("speed", 0, "sweep speed in px/s (0 = configured base speed)")
	direction := flag.String("direction", "left", "sweep direction: left or right")
	presetsPath := flag.String("presets", "", "path to the message presets file (default: PRESETS_FILE from config)")
	preset := flag.String("preset", "", "preview the first preset matching this prefix")
	suggest := flag.String("suggest", "", "list presets matching this prefix and exit")
	flag.Parse()

	log.Println("starting pov-wand preview (terminal animation)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	if *presetsPath == "" {
		*presetsPath = cfg.PresetsFile
	}

	if *suggest != "" {
		presets, err := text.LoadPresets(*presetsPath, cfg.MaxMessageGraphemes)
		if err != nil {
			log.Fatalf("failed to load presets: %v", err)
		}
		for _, p := range text.Suggest(*suggest, presets, 10) {
			fmt.Printf("%-24s %6.0f px/s  %s\n", p.Text, p.SpeedPXPS, p.Direction)
		}
		return
	}

	msg, spd, dir := *message, *speed, *direction
	if *preset != "" {
		presets, err := text.LoadPresets(*presetsPath, cfg.MaxMessageGraphemes)
		if err != nil {
			log.Fatalf("failed to load presets: %v", err)
		}
		match := text.Suggest(*preset, presets, 1)
		if len(match) == 0 {
			log.Fatalf("no preset matches %q", *preset)
		}
		msg, spd, dir = match[0].Text, match[0].SpeedPXPS, match[0].Direction
	}

	if err := app.RunPreview(msg, spd, dir); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
