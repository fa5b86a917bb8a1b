// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package render rasterizes the message once into a wide monochrome strip
// and paints a moving window of it onto the physical display.
package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Strip is the pre-rendered message: the full text drawn once at display
// resolution. The scroll offset selects which window of it is visible, so
// per-frame work is a pixel copy, never a re-rasterization.
type Strip struct {
	img   *image.Gray
	text  string
	scale int
}

// NewStrip rasterizes text with the 7x13 bitmap font, integer-scaled so one
// glyph cell is close to charWidthPX wide. The strip is as wide as the
// rendered text; empty text yields a zero-width strip.
func NewStrip(text string, charWidthPX int) *Strip {
	face := basicfont.Face7x13
	scale := charWidthPX / face.Advance
	if scale < 1 {
		scale = 1
	}

	nativeW := font.MeasureString(face, text).Ceil()
	nativeH := face.Height
	native := image.NewGray(image.Rect(0, 0, nativeW, nativeH))

	drawer := &font.Drawer{
		Dst:  native,
		Src:  image.NewUniform(color.Gray{0xFF}),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	drawer.DrawString(text)

	scaled := image.NewGray(image.Rect(0, 0, nativeW*scale, nativeH*scale))
	for y := 0; y < nativeH*scale; y++ {
		for x := 0; x < nativeW*scale; x++ {
			scaled.SetGray(x, y, native.GrayAt(x/scale, y/scale))
		}
	}

	return &Strip{img: scaled, text: text, scale: scale}
}

// Text returns the rasterized message.
func (s *Strip) Text() string { return s.text }

// TextWidth returns the strip width in pixels. This is the measurement the
// scroll driver clamps its travel against.
func (s *Strip) TextWidth() float64 { return float64(s.img.Rect.Dx()) }

// Height returns the strip height in pixels.
func (s *Strip) Height() int { return s.img.Rect.Dy() }

// Window copies the visible part of the strip into a screen-sized image.
// offset is the x position of the text's left edge on screen; the strip is
// vertically centered. Offsets that leave the text entirely off screen
// produce a blank window.
func (s *Strip) Window(offset float64, screenW, screenH int) *image.Gray {
	win := image.NewGray(image.Rect(0, 0, screenW, screenH))
	left := int(offset)
	top := (screenH - s.Height()) / 2
	if top < 0 {
		top = 0
	}

	for y := 0; y < s.Height() && top+y < screenH; y++ {
		for x := 0; x < s.img.Rect.Dx(); x++ {
			sx := left + x
			if sx < 0 || sx >= screenW {
				continue
			}
			win.SetGray(sx, top+y, s.img.GrayAt(x, y))
		}
	}
	return win
}
