package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects which pipeline variant a configuration is validated for.
type Mode int

const (
	// ModeEngine authorizes unlocks (threshold acceptance, gate, actuator).
	ModeEngine Mode = iota
	// ModeCollect harvests labeled frames (range acceptance, no actuation).
	ModeCollect
)

const (
	BackendOpenCV = "opencv"
	BackendFFmpeg = "ffmpeg"
)

// Config holds every tunable of the engine and the collector.
type Config struct {
	Camera      CameraConfig      `yaml:"camera"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Unlock      UnlockConfig      `yaml:"unlock"`
	Detector    DetectorConfig    `yaml:"detector"`
	Decision    DecisionConfig    `yaml:"decision"`

	BlockTime int    `yaml:"block_time"` // seconds the engine ignores frames after an unlock
	LogPath   string `yaml:"log_path"`   // log file and audit output root
	Workers   int    `yaml:"workers"`    // presence filter pool size
	Database  string `yaml:"database"`   // optional audit store (postgres:// or sqlite://)
}

// CameraConfig describes the frame source.
type CameraConfig struct {
	URL     string  `yaml:"url"`
	Backend string  `yaml:"backend"` // opencv, ffmpeg
	FPS     float64 `yaml:"fps"`     // frames per second handed to the pipeline
}

// RecognitionConfig describes the remote face recognition endpoint.
type RecognitionConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"` // 0 waits forever
	Width   int           `yaml:"width"`
	Height  int           `yaml:"height"`
}

// UnlockConfig describes the door actuator endpoint.
type UnlockConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	Attempts int           `yaml:"attempts"`
}

// DetectorConfig holds the Haar cascade parameters for the presence filter.
type DetectorConfig struct {
	CascadePath  string  `yaml:"cascade_path"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	Width        int     `yaml:"width"` // grayscale downsample width, 0 keeps the frame size
}

// DecisionConfig holds the acceptance rule parameters.
type DecisionConfig struct {
	Threshold     float64 `yaml:"threshold"`
	MinConfidence float64 `yaml:"min_confidence"`
	MaxConfidence float64 `yaml:"max_confidence"`
}

// Default returns the configuration used when neither a file nor a flag sets a value.
func Default() Config {
	return Config{
		Camera: CameraConfig{
			Backend: BackendOpenCV,
			FPS:     2,
		},
		Recognition: RecognitionConfig{
			Timeout: 10 * time.Second,
			Width:   640,
			Height:  360,
		},
		Unlock: UnlockConfig{
			Timeout:  300 * time.Millisecond,
			Attempts: 3,
		},
		Detector: DetectorConfig{
			CascadePath:  "util/haarcascade_frontalface_default.xml",
			ScaleFactor:  1.3,
			MinNeighbors: 5,
			Width:        640,
		},
		Decision: DecisionConfig{
			Threshold: 0.8,
		},
		BlockTime: 6,
		LogPath:   "log",
		Workers:   runtime.NumCPU(),
	}
}

// Load reads a YAML file on top of base.
func Load(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// BlockDuration is the gate cooldown as a time.Duration.
func (c *Config) BlockDuration() time.Duration {
	return time.Duration(c.BlockTime) * time.Second
}

// Validate checks c for the given pipeline variant and fills derived defaults.
func (c *Config) Validate(mode Mode) error {
	var errs []error

	if err := checkURL("camera url", c.Camera.URL); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL("recognition url", c.Recognition.URL); err != nil {
		errs = append(errs, err)
	}
	if c.Camera.Backend != BackendOpenCV && c.Camera.Backend != BackendFFmpeg {
		errs = append(errs, fmt.Errorf("camera backend must be %q or %q, got %q", BackendOpenCV, BackendFFmpeg, c.Camera.Backend))
	}
	if c.Camera.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be > 0, got %v", c.Camera.FPS))
	}
	if c.Recognition.Timeout < 0 {
		errs = append(errs, fmt.Errorf("recognition timeout must be >= 0, got %v", c.Recognition.Timeout))
	}
	if c.Recognition.Width <= 0 || c.Recognition.Height <= 0 {
		errs = append(errs, fmt.Errorf("inference size must be positive, got %dx%d", c.Recognition.Width, c.Recognition.Height))
	}
	if c.Detector.CascadePath == "" {
		errs = append(errs, errors.New("cascade path is required"))
	}
	if c.Detector.ScaleFactor <= 1 {
		errs = append(errs, fmt.Errorf("scale factor must be > 1, got %v", c.Detector.ScaleFactor))
	}
	if c.Detector.MinNeighbors < 0 {
		errs = append(errs, fmt.Errorf("min neighbors must be >= 0, got %d", c.Detector.MinNeighbors))
	}
	if c.LogPath == "" {
		errs = append(errs, errors.New("log path is required"))
	}
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU()
	}

	switch mode {
	case ModeEngine:
		if err := checkURL("unlock url", c.Unlock.URL); err != nil {
			errs = append(errs, err)
		}
		if c.Decision.Threshold < 0 || c.Decision.Threshold > 1 {
			errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", c.Decision.Threshold))
		}
		if c.BlockTime < 0 {
			errs = append(errs, fmt.Errorf("block time must be >= 0, got %d", c.BlockTime))
		}
		if c.Unlock.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("unlock timeout must be > 0, got %v", c.Unlock.Timeout))
		}
		if c.Unlock.Attempts < 1 {
			errs = append(errs, fmt.Errorf("unlock attempts must be >= 1, got %d", c.Unlock.Attempts))
		}
	case ModeCollect:
		lo, hi := c.Decision.MinConfidence, c.Decision.MaxConfidence
		if lo < 0 || hi > 1 || lo > hi {
			errs = append(errs, fmt.Errorf("confidence range must satisfy 0 <= min <= max <= 1, got [%v, %v]", lo, hi))
		}
	}

	return errors.Join(errs...)
}

func checkURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("invalid %s %q: missing scheme", name, raw)
	}
	return nil
}
