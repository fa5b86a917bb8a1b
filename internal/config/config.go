// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Flicker safety band
	FlickerSafeMinHz float64
	FlickerSafeMaxHz float64

	// Motion sampling
	SampleIntervalMS    int // target sensor interval, ~60 Hz
	VelocityWindow      int // rolling average ring size
	MaxDeltaTimeMS      int // samples with larger gaps are dropped
	DirectionThreshold  float64
	VelocityRotWeight   float64
	VelocityAccelWeight float64

	// Calibration
	CalibrationDurationMS int
	SamplesNeeded         int
	VelocityThreshold     float64
	DefaultDirection      string // "left" or "right"
	MetronomeIntervalMS   int
	TempoHapticThrottleMS int
	TempoSlowThreshold    float64
	TempoFastThreshold    float64

	// Scroll drive
	BaseScrollMultiplier  float64
	MaxScrollDeltaPX      float64
	BaseScrollSpeedPXPS   float64
	FallbackMinDurationMS int
	FrameIntervalMS       int
	SpringStiffness       float64
	SpringDamping         float64
	SpringMass            float64

	// Session
	AutoOffTimeoutMS int

	// Text
	CharWidthPX         float64
	MaxMessageGraphemes int
	PresetsFile         string

	// IMU hardware
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange  byte
	IMUDLPFConfig byte

	// GPS source
	GPSSerialPort   string
	GPSBaudRate     int
	GPSSpeedScale   float64 // knots -> native velocity units
	GPSSpeedFloor   float64 // below this, direction is stationary
	GPSCourseMinDeg float64 // course delta below this is straight ahead

	// Haptics
	HapticGPIOPin string

	// Display
	DisplayI2CAddr  uint16
	DisplayWidthPX  int
	DisplayHeightPX int

	// MQTT
	MQTTBroker         string
	MQTTClientIDDaemon string
	MQTTClientIDWeb    string
	TopicState         string
	TopicOffset        string
	TopicCalibration   string
	OffsetPublishMS    int

	// Web Server
	WebServerPort int
}

// Default returns a Config populated with the documented defaults. A config
// file only needs to carry the keys it overrides.
func Default() *Config {
	return &Config{
		FlickerSafeMinHz: 15,
		FlickerSafeMaxHz: 25,

		SampleIntervalMS:    16,
		VelocityWindow:      10,
		MaxDeltaTimeMS:      100,
		DirectionThreshold:  0.5,
		VelocityRotWeight:   1.0,
		VelocityAccelWeight: 1.0,

		CalibrationDurationMS: 1000,
		SamplesNeeded:         10,
		VelocityThreshold:     0.5,
		DefaultDirection:      "right",
		MetronomeIntervalMS:   500,
		TempoHapticThrottleMS: 500,
		TempoSlowThreshold:    2.0,
		TempoFastThreshold:    8.0,

		BaseScrollMultiplier:  15,
		MaxScrollDeltaPX:      1000,
		BaseScrollSpeedPXPS:   200,
		FallbackMinDurationMS: 200,
		FrameIntervalMS:       16,
		SpringStiffness:       200,
		SpringDamping:         20,
		SpringMass:            0.5,

		AutoOffTimeoutMS: 180000,

		CharWidthPX:         20,
		MaxMessageGraphemes: 20,
		PresetsFile:         "./presets.yaml",

		IMUSPIDevice:  "/dev/spidev0.0",
		IMUCSPin:      "18",
		IMUAccelRange: 1,
		IMUGyroRange:  1,
		IMUDLPFConfig: 3,

		GPSSerialPort:   "/dev/serial0",
		GPSBaudRate:     9600,
		GPSSpeedScale:   1.0,
		GPSSpeedFloor:   0.5,
		GPSCourseMinDeg: 2.0,

		DisplayI2CAddr:  0x3C,
		DisplayWidthPX:  128,
		DisplayHeightPX: 64,

		MQTTBroker:         "tcp://localhost:1883",
		MQTTClientIDDaemon: "pov-wand-daemon",
		MQTTClientIDWeb:    "pov-wand-web",
		TopicState:         "pov/state",
		TopicOffset:        "pov/offset",
		TopicCalibration:   "pov/calibration",
		OffsetPublishMS:    100,

		WebServerPort: 8080,
	}
}

// Package-level unexported variables for singleton pattern. External code
// must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct. Keys not
// present in the file keep their defaults.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Flicker safety
	case "FLICKER_SAFE_MIN_HZ":
		return setFloat(&c.FlickerSafeMinHz, key, value)
	case "FLICKER_SAFE_MAX_HZ":
		return setFloat(&c.FlickerSafeMaxHz, key, value)

	// Motion sampling
	case "SAMPLE_INTERVAL_MS":
		return setInt(&c.SampleIntervalMS, key, value)
	case "VELOCITY_WINDOW":
		return setInt(&c.VelocityWindow, key, value)
	case "MAX_DELTA_TIME_MS":
		return setInt(&c.MaxDeltaTimeMS, key, value)
	case "DIRECTION_THRESHOLD":
		return setFloat(&c.DirectionThreshold, key, value)
	case "VELOCITY_ROT_WEIGHT":
		return setFloat(&c.VelocityRotWeight, key, value)
	case "VELOCITY_ACCEL_WEIGHT":
		return setFloat(&c.VelocityAccelWeight, key, value)

	// Calibration
	case "CALIBRATION_DURATION_MS":
		return setInt(&c.CalibrationDurationMS, key, value)
	case "SAMPLES_NEEDED":
		return setInt(&c.SamplesNeeded, key, value)
	case "VELOCITY_THRESHOLD":
		return setFloat(&c.VelocityThreshold, key, value)
	case "DEFAULT_DIRECTION":
		if value != "left" && value != "right" {
			return fmt.Errorf("DEFAULT_DIRECTION must be left or right, got %q", value)
		}
		c.DefaultDirection = value
	case "METRONOME_INTERVAL_MS":
		return setInt(&c.MetronomeIntervalMS, key, value)
	case "TEMPO_HAPTIC_THROTTLE_MS":
		return setInt(&c.TempoHapticThrottleMS, key, value)
	case "TEMPO_SLOW_THRESHOLD":
		return setFloat(&c.TempoSlowThreshold, key, value)
	case "TEMPO_FAST_THRESHOLD":
		return setFloat(&c.TempoFastThreshold, key, value)

	// Scroll drive
	case "BASE_SCROLL_MULTIPLIER":
		return setFloat(&c.BaseScrollMultiplier, key, value)
	case "MAX_SCROLL_DELTA_PX":
		return setFloat(&c.MaxScrollDeltaPX, key, value)
	case "BASE_SCROLL_SPEED_PXPS":
		return setFloat(&c.BaseScrollSpeedPXPS, key, value)
	case "FALLBACK_MIN_DURATION_MS":
		return setInt(&c.FallbackMinDurationMS, key, value)
	case "FRAME_INTERVAL_MS":
		return setInt(&c.FrameIntervalMS, key, value)
	case "SPRING_STIFFNESS":
		return setFloat(&c.SpringStiffness, key, value)
	case "SPRING_DAMPING":
		return setFloat(&c.SpringDamping, key, value)
	case "SPRING_MASS":
		return setFloat(&c.SpringMass, key, value)

	// Session
	case "AUTO_OFF_TIMEOUT_MS":
		return setInt(&c.AutoOffTimeoutMS, key, value)

	// Text
	case "CHAR_WIDTH_PX":
		return setFloat(&c.CharWidthPX, key, value)
	case "MAX_MESSAGE_GRAPHEMES":
		return setInt(&c.MaxMessageGraphemes, key, value)
	case "PRESETS_FILE":
		c.PresetsFile = value

	// IMU hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)
	case "IMU_DLPF_CFG":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_DLPF_CFG %q: %w", value, err)
		}
		if val < 0 || val > 7 {
			return fmt.Errorf("IMU_DLPF_CFG must be 0-7, got %d", val)
		}
		c.IMUDLPFConfig = byte(val)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		return setInt(&c.GPSBaudRate, key, value)
	case "GPS_SPEED_SCALE":
		return setFloat(&c.GPSSpeedScale, key, value)
	case "GPS_SPEED_FLOOR":
		return setFloat(&c.GPSSpeedFloor, key, value)
	case "GPS_COURSE_MIN_DEG":
		return setFloat(&c.GPSCourseMinDeg, key, value)

	// Haptics
	case "HAPTIC_GPIO_PIN":
		c.HapticGPIOPin = value

	// Display
	case "DISPLAY_I2C_ADDR":
		val, err := strconv.ParseUint(strings.TrimPrefix(value, "0x"), 16, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(val)
	case "DISPLAY_WIDTH_PX":
		return setInt(&c.DisplayWidthPX, key, value)
	case "DISPLAY_HEIGHT_PX":
		return setInt(&c.DisplayHeightPX, key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_DAEMON":
		c.MQTTClientIDDaemon = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "TOPIC_STATE":
		c.TopicState = value
	case "TOPIC_OFFSET":
		c.TopicOffset = value
	case "TOPIC_CALIBRATION":
		c.TopicCalibration = value
	case "OFFSET_PUBLISH_MS":
		return setInt(&c.OffsetPublishMS, key, value)

	// Web
	case "WEB_SERVER_PORT":
		return setInt(&c.WebServerPort, key, value)

	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	val, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = val
	return nil
}

func setFloat(dst *float64, key, value string) error {
	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = val
	return nil
}

// Validate checks cross-field constraints that per-key parsing cannot.
func (c *Config) Validate() error {
	if c.FlickerSafeMinHz <= 0 || c.FlickerSafeMaxHz <= 0 {
		return fmt.Errorf("flicker band limits must be positive, got [%v, %v]", c.FlickerSafeMinHz, c.FlickerSafeMaxHz)
	}
	if c.FlickerSafeMinHz > c.FlickerSafeMaxHz {
		return fmt.Errorf("FLICKER_SAFE_MIN_HZ %v exceeds FLICKER_SAFE_MAX_HZ %v", c.FlickerSafeMinHz, c.FlickerSafeMaxHz)
	}
	if c.SampleIntervalMS <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL_MS must be positive, got %d", c.SampleIntervalMS)
	}
	if c.VelocityWindow <= 0 {
		return fmt.Errorf("VELOCITY_WINDOW must be positive, got %d", c.VelocityWindow)
	}
	if c.SamplesNeeded <= 0 {
		return fmt.Errorf("SAMPLES_NEEDED must be positive, got %d", c.SamplesNeeded)
	}
	if c.CalibrationDurationMS <= 0 {
		return fmt.Errorf("CALIBRATION_DURATION_MS must be positive, got %d", c.CalibrationDurationMS)
	}
	if c.TempoSlowThreshold > c.TempoFastThreshold {
		return fmt.Errorf("TEMPO_SLOW_THRESHOLD %v exceeds TEMPO_FAST_THRESHOLD %v", c.TempoSlowThreshold, c.TempoFastThreshold)
	}
	if c.SpringStiffness <= 0 || c.SpringMass <= 0 || c.SpringDamping < 0 {
		return fmt.Errorf("invalid spring parameters: stiffness=%v damping=%v mass=%v", c.SpringStiffness, c.SpringDamping, c.SpringMass)
	}
	if c.AutoOffTimeoutMS <= 0 {
		return fmt.Errorf("AUTO_OFF_TIMEOUT_MS must be positive, got %d", c.AutoOffTimeoutMS)
	}
	return nil
}

// InitGlobal loads the configuration from the given path and installs it as
// the process-wide config. Only the first call has any effect.
func InitGlobal(configPath string) error {
	var initErr error
	configOnce.Do(func() {
		cfg, err := Load(configPath)
		if err != nil {
			initErr = err
			return
		}
		configMu.Lock()
		globalConfig = cfg
		configMu.Unlock()
	})
	return initErr
}

// Get returns the global configuration. Falls back to defaults if InitGlobal
// was never called, so library consumers and tests do not need a file.
func Get() *Config {
	configMu.RLock()
	cfg := globalConfig
	configMu.RUnlock()
	if cfg == nil {
		return Default()
	}
	return cfg
}
