package sensors

import (
	"testing"

	"github.com/relabs-tech/pov_wand/internal/config"
	"github.com/relabs-tech/pov_wand/internal/motion"
)

var (
	_ motion.Source = (*MPU9250Source)(nil)
	_ motion.Prober = (*MPU9250Source)(nil)
)

func TestMPU9250Source_ConfigWiring(t *testing.T) {
	cfg := config.Default()
	cfg.IMUSPIDevice = "/dev/spidev1.0"
	cfg.IMUCSPin = "GPIO17"
	cfg.IMUAccelRange = 2
	cfg.IMUGyroRange = 1

	s := NewMPU9250Source(cfg)
	if s.spiDev != "/dev/spidev1.0" || s.csPin != "GPIO17" {
		t.Errorf("device wiring mismatch: %q %q", s.spiDev, s.csPin)
	}
	if s.accelRange != 2 || s.gyroRange != 1 {
		t.Errorf("range wiring mismatch: %d %d", s.accelRange, s.gyroRange)
	}
}

func TestMPU9250Source_NextBeforeProbe(t *testing.T) {
	s := NewMPU9250Source(config.Default())
	if _, err := s.Next(); err == nil {
		t.Error("expected error reading before the device is opened")
	}
}
