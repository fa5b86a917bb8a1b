// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

import (
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

const (
	contrastMax     = 0xFF
	contrastDefault = 0x7F

	// The ssd1306 driver hardcodes this slave address.
	ssd1306Addr = 0x3C
)

// remapBus redirects the driver's fixed slave address to the configured
// panel address, for boards strapped to 0x3D.
type remapBus struct {
	i2c.Bus
	addr uint16
}

func (b *remapBus) Tx(addr uint16, w, r []byte) error {
	if addr == ssd1306Addr {
		addr = b.addr
	}
	return b.Bus.Tx(addr, w, r)
}

// OLED drives the SSD1306 panel over I2C. It also implements the session
// brightness interface through the panel contrast register.
type OLED struct {
	dev *ssd1306.Dev
	bus i2c.BusCloser
	w   int
	h   int

	mu       sync.Mutex
	contrast byte
}

// OpenOLED initializes periph, opens the default I2C bus and brings up the
// panel at the given address.
func OpenOLED(addr uint16, width, height int) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	opts := ssd1306.DefaultOpts
	opts.W = width
	opts.H = height
	var devBus i2c.Bus = bus
	if addr != ssd1306Addr {
		devBus = &remapBus{Bus: bus, addr: addr}
	}
	dev, err := ssd1306.NewI2C(devBus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized %dx%d panel at 0x%02X", width, height, addr)

	return &OLED{dev: dev, bus: bus, w: width, h: height, contrast: contrastDefault}, nil
}

// Width returns the panel width in pixels.
func (o *OLED) Width() int { return o.w }

// Height returns the panel height in pixels.
func (o *OLED) Height() int { return o.h }

// Splash paints the startup screen.
func (o *OLED) Splash() error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, o.w, o.h))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("POV Wand"))
	drawer.Dot = fixed.P(10, 43)
	drawer.DrawBytes([]byte("Hold still..."))

	return o.dev.Draw(o.dev.Bounds(), img, image.Point{})
}

// Paint draws the strip window at the given offset.
func (o *OLED) Paint(strip *Strip, offset float64) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, o.w, o.h))
	draw.Draw(img, img.Bounds(), strip.Window(offset, o.w, o.h), image.Point{}, draw.Src)
	return o.dev.Draw(o.dev.Bounds(), img, image.Point{})
}

// Clear blanks the panel.
func (o *OLED) Clear() error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, o.w, o.h))
	return o.dev.Draw(o.dev.Bounds(), img, image.Point{})
}

// Close blanks the panel and releases the bus.
func (o *OLED) Close() error {
	if err := o.Clear(); err != nil {
		log.Printf("display: clearing on close: %v", err)
	}
	return o.bus.Close()
}

// Current reports the last programmed contrast as a 0..1 level.
func (o *OLED) Current() (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return float64(o.contrast) / contrastMax, nil
}

// SetMax pushes the panel to full contrast for the display run.
func (o *OLED) SetMax() error {
	return o.setContrast(contrastMax)
}

// Restore drops the panel back to the default contrast.
func (o *OLED) Restore() error {
	return o.setContrast(contrastDefault)
}

func (o *OLED) setContrast(level byte) error {
	if err := o.dev.SetContrast(level); err != nil {
		return fmt.Errorf("failed to set contrast: %w", err)
	}
	o.mu.Lock()
	o.contrast = level
	o.mu.Unlock()
	return nil
}
