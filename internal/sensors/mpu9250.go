// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors provides the hardware motion sources: the MPU9250 over
// SPI and a GPS speed adapter for bike-mounted use. Both satisfy the motion
// Source and Prober interfaces; capability failures surface from Probe as
// booleans, never as errors.
package sensors

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sync"
	"syscall"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/pov_wand/internal/config"
	"github.com/relabs-tech/pov_wand/internal/motion"
)

// MPU9250 count scaling at range setting 0. Each range step doubles the
// full-scale span and halves the sensitivity.
const (
	accelCountsPerG   = 16384.0
	gyroCountsPerDegS = 131.0
)

// MPU9250Source reads inertial samples from the MPU9250 over SPI. The
// device is brought up lazily on the first Probe.
type MPU9250Source struct {
	spiDev     string
	csPin      string
	accelRange byte
	gyroRange  byte

	mu  sync.Mutex
	imu *mpu9250.MPU9250
}

// NewMPU9250Source builds an unconnected source from the application
// config. Probe opens the device.
func NewMPU9250Source(cfg *config.Config) *MPU9250Source {
	return &MPU9250Source{
		spiDev:     cfg.IMUSPIDevice,
		csPin:      cfg.IMUCSPin,
		accelRange: cfg.IMUAccelRange,
		gyroRange:  cfg.IMUGyroRange,
	}
}

// Probe brings the device up and reports availability and permission. A
// permission error on the SPI device or CS pin means the hardware is there
// but access was denied.
func (s *MPU9250Source) Probe() (available, permitted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imu != nil {
		return true, true
	}

	imu, err := s.open()
	if err != nil {
		if permissionDenied(err) {
			log.Printf("imu: access denied: %v", err)
			return true, false
		}
		log.Printf("imu: not available: %v", err)
		return false, false
	}
	s.imu = imu
	return true, true
}

func (s *MPU9250Source) open() (*mpu9250.MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("imu: periph host init: %w", err)
	}

	cs := gpioreg.ByName(s.csPin)
	if cs == nil {
		return nil, fmt.Errorf("imu: CS pin %q not found", s.csPin)
	}

	tr, err := mpu9250.NewSpiTransport(s.spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("imu: SPI transport (%s): %w", s.spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("imu: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("imu: initialization: %w", err)
	}

	if err := imu.SetAccelRange(s.accelRange); err != nil {
		return nil, fmt.Errorf("imu: set accel range: %w", err)
	}
	log.Printf("imu: accelerometer range set to %d (±%dg)", s.accelRange, []int{2, 4, 8, 16}[s.accelRange])

	if err := imu.SetGyroRange(s.gyroRange); err != nil {
		return nil, fmt.Errorf("imu: set gyro range: %w", err)
	}
	log.Printf("imu: gyroscope range set to %d (±%d°/s)", s.gyroRange, []int{250, 500, 1000, 2000}[s.gyroRange])

	if err := imu.Calibrate(); err != nil {
		log.Printf("Warning: imu calibration failed: %v", err)
	} else {
		log.Printf("imu: calibration complete")
	}

	return imu, nil
}

// Next reads one sample. Counts are scaled to g and deg/s for the
// configured ranges.
func (s *MPU9250Source) Next() (motion.Sample, error) {
	s.mu.Lock()
	imu := s.imu
	s.mu.Unlock()
	if imu == nil {
		return motion.Sample{}, errors.New("imu: not initialized")
	}

	ax, err := imu.GetAccelerationX()
	if err != nil {
		return motion.Sample{}, fmt.Errorf("imu accel X: %w", err)
	}
	ay, err := imu.GetAccelerationY()
	if err != nil {
		return motion.Sample{}, fmt.Errorf("imu accel Y: %w", err)
	}
	az, err := imu.GetAccelerationZ()
	if err != nil {
		return motion.Sample{}, fmt.Errorf("imu accel Z: %w", err)
	}
	gz, err := imu.GetRotationZ()
	if err != nil {
		return motion.Sample{}, fmt.Errorf("imu gyro Z: %w", err)
	}

	accelScale := accelCountsPerG / float64(int(1)<<s.accelRange)
	gyroScale := gyroCountsPerDegS / float64(int(1)<<s.gyroRange)

	return motion.Sample{
		Ax:   float64(ax) / accelScale,
		Ay:   float64(ay) / accelScale,
		Az:   float64(az) / accelScale,
		RotZ: float64(gz) / gyroScale,
		At:   time.Now(),
	}, nil
}

func permissionDenied(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES)
}
