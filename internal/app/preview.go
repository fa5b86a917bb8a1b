// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/relabs-tech/pov_wand/internal/config"
	"github.com/relabs-tech/pov_wand/internal/motion"
	"github.com/relabs-tech/pov_wand/internal/render"
	"github.com/relabs-tech/pov_wand/internal/scroll"
	"github.com/relabs-tech/pov_wand/internal/text"
)

const previewCols = 64

// RunPreview loops the message as a terminal animation, using the same
// sweep the display fallback uses, so timing can be judged without
// hardware.
func RunPreview(message string, speed float64, direction string) error {
	cfg := config.Get()

	msg := text.Normalize(message)
	if err := text.CheckLength(msg, cfg.MaxMessageGraphemes); err != nil {
		return fmt.Errorf("message: %w", err)
	}
	msg = text.Sanitize(msg)
	if msg == "" {
		return fmt.Errorf("message: nothing displayable")
	}

	strip := render.NewStrip(msg, int(cfg.CharWidthPX))
	screenW := float64(cfg.DisplayWidthPX)

	preview := scroll.NewPreview(scroll.OptionsFromConfig(cfg, screenW, strip.TextWidth()))
	preview.SetMessage(strip.TextWidth(), speed, motion.ParseDirection(direction))
	defer preview.Stop()

	log.Printf("preview: %q over %.0fpx, one sweep takes %v", msg, strip.TextWidth(), preview.CycleDuration())

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		fmt.Printf("\r%s  off=%6.0f", track(preview.Offset(), screenW, strip.TextWidth()), preview.Offset())
	}
	return nil
}

// track draws the screen as one line of cells with the text span filled.
func track(offset, screenW, textW float64) string {
	cells := make([]byte, previewCols)
	for i := range cells {
		cells[i] = '.'
	}
	from := int(offset / screenW * previewCols)
	to := int((offset + textW) / screenW * previewCols)
	for i := from; i <= to; i++ {
		if i >= 0 && i < previewCols {
			cells[i] = '#'
		}
	}
	var b strings.Builder
	b.WriteByte('[')
	b.Write(cells)
	b.WriteByte(']')
	return b.String()
}
