// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/pov_wand/internal/config"
	"github.com/relabs-tech/pov_wand/internal/motion"
)

// GPSSource adapts NMEA ground speed into the motion sample shape, for the
// bike-mounted display mode. Speed over ground drives velocity; a course
// change past the configured minimum flips the swing direction, which
// otherwise holds. Below the speed floor the wand is stationary.
type GPSSource struct {
	portName  string
	baudRate  int
	scale     float64
	floor     float64
	courseMin float64

	mu         sync.Mutex
	port       io.ReadCloser
	speed      float64 // knots
	course     float64 // deg
	haveCourse bool
	sign       float64 // +1 right, -1 left
	haveFix    bool
}

// NewGPSSource builds an unconnected source from the application config.
// Probe opens the serial port.
func NewGPSSource(cfg *config.Config) *GPSSource {
	return &GPSSource{
		portName:  cfg.GPSSerialPort,
		baudRate:  cfg.GPSBaudRate,
		scale:     cfg.GPSSpeedScale,
		floor:     cfg.GPSSpeedFloor,
		courseMin: cfg.GPSCourseMinDeg,
		sign:      1,
	}
}

// Probe opens the serial port and starts the NMEA reader.
func (g *GPSSource) Probe() (available, permitted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.port != nil {
		return true, true
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:              g.portName,
		BaudRate:              uint(g.baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	})
	if err != nil {
		if permissionDenied(err) {
			log.Printf("gps: access denied on %s: %v", g.portName, err)
			return true, false
		}
		log.Printf("gps: not available on %s: %v", g.portName, err)
		return false, false
	}
	log.Printf("gps: serial port opened on %s at %d baud", g.portName, g.baudRate)

	g.port = port
	go g.read(port)
	return true, true
}

// read consumes NMEA sentences until the port closes. Only RMC carries
// speed and course over ground.
func (g *GPSSource) read(port io.Reader) {
	reader := bufio.NewReader(port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("gps: read error: %v", err)
			return
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			continue
		}
		if sentence.DataType() != nmea.TypeRMC {
			continue
		}
		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			continue
		}
		g.apply(m.Speed, m.Course)
	}
}

// apply folds one fix into the source state.
func (g *GPSSource) apply(speedKnots, courseDeg float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.haveCourse {
		delta := courseDelta(courseDeg, g.course)
		if delta > g.courseMin {
			g.sign = 1
		} else if delta < -g.courseMin {
			g.sign = -1
		}
	}
	g.speed = speedKnots
	g.course = courseDeg
	g.haveCourse = true
	g.haveFix = true
}

// Next reports the latest fix as a motion sample. The signed rotation
// carries both the speed magnitude and the held turn direction.
func (g *GPSSource) Next() (motion.Sample, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.port == nil {
		return motion.Sample{}, errors.New("gps: not initialized")
	}

	v := g.speed * g.scale
	if !g.haveFix || v < g.floor {
		return motion.Sample{At: time.Now()}, nil
	}
	return motion.Sample{
		Ax:   v,
		RotZ: g.sign * v,
		At:   time.Now(),
	}, nil
}

// Close releases the serial port.
func (g *GPSSource) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.port == nil {
		return nil
	}
	err := g.port.Close()
	g.port = nil
	return err
}

// courseDelta returns the signed smallest angle from prev to cur, in
// degrees. Positive means a turn to the right.
func courseDelta(cur, prev float64) float64 {
	d := cur - prev
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}
