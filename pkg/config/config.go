package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the stand configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Estimator   EstimatorConfig   `yaml:"estimator"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Store       StoreConfig       `yaml:"store"`
	Recording   RecordingConfig   `yaml:"recording"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial link configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// SensorConfig describes how the HX711 is wired.
type SensorConfig struct {
	Backend      string        `yaml:"backend"`       // "embd", "rpio" or "mock"
	ClockPin     int           `yaml:"clock_pin"`     // PD_SCK GPIO
	DataPin      int           `yaml:"data_pin"`      // DOUT GPIO
	Gain         int           `yaml:"gain"`          // 128, 64 or 32
	PollInterval time.Duration `yaml:"poll_interval"` // Sleep between ready polls
	ReadyTimeout time.Duration `yaml:"ready_timeout"` // Start-up wait for the first conversion
	WarmupReads  int           `yaml:"warmup_reads"`  // Discarded reads priming the estimator
}

// EstimatorConfig contains the scalar Kalman filter parameters.
type EstimatorConfig struct {
	ProcessNoise     float64 `yaml:"process_noise"`
	MeasurementNoise float64 `yaml:"measurement_noise"`
	InitialError     float64 `yaml:"initial_error"`
}

// AcquisitionConfig contains aggregation and calibration parameters.
type AcquisitionConfig struct {
	Mode        string        `yaml:"mode"`    // raw, average, median, medavg, runavg
	Samples     int           `yaml:"samples"` // Reads per aggregate
	Alpha       float64       `yaml:"alpha"`   // Running average smoothing factor
	Interval    time.Duration `yaml:"interval"`
	Offset      int32         `yaml:"offset"`
	Scale       float64       `yaml:"scale"` // Raw counts per unit
	TareOnStart bool          `yaml:"tare_on_start"`
	TareSamples int           `yaml:"tare_samples"`
}

// StoreConfig describes the external curve memory.
type StoreConfig struct {
	Backend   string `yaml:"backend"` // "i2c", "file" or "memory"
	Bus       int    `yaml:"bus"`
	Address   int    `yaml:"address"`
	PageSize  int    `yaml:"page_size"`
	SizeKbit  int    `yaml:"size_kbit"`
	ImagePath string `yaml:"image_path"`
	Layout    string `yaml:"layout"` // thrust, pressure, dual_pressure
}

// RecordingConfig controls when a curve is recorded.
type RecordingConfig struct {
	StartThrust float64       `yaml:"start_thrust"` // Begin a curve at or above this thrust
	EndThrust   float64       `yaml:"end_thrust"`   // Close the curve below this thrust
	EndDelay    time.Duration `yaml:"end_delay"`    // Thrust must stay below EndThrust this long
	MaxDuration time.Duration `yaml:"max_duration"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// MetricsConfig contains the prometheus endpoint settings.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // Empty disables the endpoint
}

// MockConfig contains simulated load cell configuration.
type MockConfig struct {
	Bias          int32         `yaml:"bias"`            // Raw reading with no load
	CountsPerUnit float64       `yaml:"counts_per_unit"` // Raw counts per thrust unit
	NoiseLevel    float64       `yaml:"noise_level"`     // Noise amplitude (raw counts)
	PeakThrust    float64       `yaml:"peak_thrust"`     // Simulated peak thrust (units)
	BurnDuration  time.Duration `yaml:"burn_duration"`
	BurnPeriod    time.Duration `yaml:"burn_period"` // Time between simulated burns
	SampleRate    time.Duration `yaml:"sample_rate"` // Conversion period
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 38400,
		},
		Sensor: SensorConfig{
			Backend:      "rpio",
			ClockPin:     6,
			DataPin:      5,
			Gain:         128,
			PollInterval: 100 * time.Microsecond,
			ReadyTimeout: time.Second,
			WarmupReads:  50,
		},
		Estimator: EstimatorConfig{
			ProcessNoise:     1,
			MeasurementNoise: 100,
			InitialError:     1000,
		},
		Acquisition: AcquisitionConfig{
			Mode:        "average",
			Samples:     1,
			Alpha:       0.5,
			Interval:    10 * time.Millisecond,
			Scale:       1,
			TareOnStart: true,
			TareSamples: 10,
		},
		Store: StoreConfig{
			Backend:  "i2c",
			Bus:      1,
			Address:  0x50,
			PageSize: 64,
			SizeKbit: 512,
			Layout:   "thrust",
		},
		Recording: RecordingConfig{
			StartThrust: 10,
			EndThrust:   1,
			EndDelay:    500 * time.Millisecond,
			MaxDuration: 60 * time.Second,
		},
		Mock: MockConfig{
			Bias:          84000,
			CountsPerUnit: 21.5,
			NoiseLevel:    40,
			PeakThrust:    2500,
			BurnDuration:  2 * time.Second,
			BurnPeriod:    20 * time.Second,
			SampleRate:    12500 * time.Microsecond, // 80 SPS
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// StoreCapacity returns the external memory size in bytes.
func (c *Config) StoreCapacity() uint32 {
	return uint32(c.Store.SizeKbit) * 128
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Sensor.Backend == "" {
		c.Sensor.Backend = def.Sensor.Backend
	}
	if c.Sensor.Gain == 0 {
		c.Sensor.Gain = def.Sensor.Gain
	}
	if c.Sensor.PollInterval == 0 {
		c.Sensor.PollInterval = def.Sensor.PollInterval
	}
	if c.Sensor.ReadyTimeout == 0 {
		c.Sensor.ReadyTimeout = def.Sensor.ReadyTimeout
	}

	if c.Estimator.MeasurementNoise == 0 {
		c.Estimator.MeasurementNoise = def.Estimator.MeasurementNoise
	}
	if c.Estimator.InitialError == 0 {
		c.Estimator.InitialError = def.Estimator.InitialError
	}

	if c.Acquisition.Mode == "" {
		c.Acquisition.Mode = def.Acquisition.Mode
	}
	if c.Acquisition.Samples == 0 {
		c.Acquisition.Samples = def.Acquisition.Samples
	}
	if c.Acquisition.Interval == 0 {
		c.Acquisition.Interval = def.Acquisition.Interval
	}
	if c.Acquisition.Scale == 0 {
		c.Acquisition.Scale = def.Acquisition.Scale
	}
	if c.Acquisition.TareSamples == 0 {
		c.Acquisition.TareSamples = def.Acquisition.TareSamples
	}

	if c.Store.Backend == "" {
		c.Store.Backend = def.Store.Backend
	}
	if c.Store.Address == 0 {
		c.Store.Address = def.Store.Address
	}
	if c.Store.PageSize == 0 {
		c.Store.PageSize = def.Store.PageSize
	}
	if c.Store.SizeKbit == 0 {
		c.Store.SizeKbit = def.Store.SizeKbit
	}
	if c.Store.Layout == "" {
		c.Store.Layout = def.Store.Layout
	}

	if c.Recording.EndDelay == 0 {
		c.Recording.EndDelay = def.Recording.EndDelay
	}
	if c.Recording.MaxDuration == 0 {
		c.Recording.MaxDuration = def.Recording.MaxDuration
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.BurnPeriod == 0 {
		c.Mock.BurnPeriod = def.Mock.BurnPeriod
	}
	if c.Mock.BurnDuration == 0 {
		c.Mock.BurnDuration = def.Mock.BurnDuration
	}
}
