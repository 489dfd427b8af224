package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dynstream/internal/buffer"
	"github.com/san-kum/dynstream/internal/frame"
	"github.com/san-kum/dynstream/internal/integrators"
	"github.com/san-kum/dynstream/internal/models"
)

const (
	DefaultQuality     = 0.01
	DefaultBufferSize  = 64
	DefaultBufferLimit = 4
	DefaultDuration    = 120.0
	DefaultSpeed       = 1.0
	DefaultFPS         = 30
	DefaultLaunchSpeed = 20.0
	DefaultLaunchAngle = 45.0
	DefaultAltitude    = 1500.0
	DefaultDropHeight  = 2.0
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Model          string             `yaml:"model"`
	Integrator     string             `yaml:"integrator,omitempty"`
	Quality        float64            `yaml:"quality"`
	BufferSize     int                `yaml:"buffer_size"`
	BufferLimit    int                `yaml:"buffer_limit"`
	AllowedBuffers int                `yaml:"allowed_buffers"`
	Duration       float64            `yaml:"duration"`
	Speed          float64            `yaml:"speed"`
	FPS            int                `yaml:"fps"`
	InitState      InitStateConfig    `yaml:"init_state"`
	Params         map[string]float64 `yaml:"params,omitempty"`
}

type InitStateConfig struct {
	Speed    float64   `yaml:"speed"`
	Angle    float64   `yaml:"angle"`
	Height   float64   `yaml:"height"`
	Altitude float64   `yaml:"altitude"`
	Velocity float64   `yaml:"velocity"`
	Orbits   []float64 `yaml:"orbits,omitempty"`
}

// FrameSizer reports the frame width a model writes.
type FrameSizer interface {
	FrameSize(model string, state []float64) (int, error)
}

func DefaultConfig() *Config {
	return &Config{
		Model:       "projectile",
		Integrator:  integrators.Default,
		Quality:     DefaultQuality,
		BufferSize:  DefaultBufferSize,
		BufferLimit: DefaultBufferLimit,
		Duration:    DefaultDuration,
		Speed:       DefaultSpeed,
		FPS:         DefaultFPS,
		InitState: InitStateConfig{
			Speed:    DefaultLaunchSpeed,
			Angle:    DefaultLaunchAngle,
			Altitude: DefaultAltitude,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case !(c.Quality > 0):
		return fmt.Errorf("%w: quality must be positive, got %v", ErrInvalid, c.Quality)
	case c.BufferSize <= 0:
		return fmt.Errorf("%w: buffer_size must be positive, got %d", ErrInvalid, c.BufferSize)
	case c.BufferLimit < buffer.MinBufferLimit:
		return fmt.Errorf("%w: buffer_limit must be at least %d, got %d", ErrInvalid, buffer.MinBufferLimit, c.BufferLimit)
	case c.AllowedBuffers < 0 || c.AllowedBuffers > c.BufferLimit:
		return fmt.Errorf("%w: allowed_buffers must be in [0, %d], got %d", ErrInvalid, c.BufferLimit, c.AllowedBuffers)
	case c.AllowedBuffers != 0 && c.AllowedBuffers < buffer.MinBufferLimit:
		return fmt.Errorf("%w: allowed_buffers must be 0 or at least %d, got %d", ErrInvalid, buffer.MinBufferLimit, c.AllowedBuffers)
	case c.Duration < 0:
		return fmt.Errorf("%w: duration must not be negative, got %v", ErrInvalid, c.Duration)
	case !(c.Speed > 0):
		return fmt.Errorf("%w: speed must be positive, got %v", ErrInvalid, c.Speed)
	case c.FPS <= 0:
		return fmt.Errorf("%w: fps must be positive, got %d", ErrInvalid, c.FPS)
	}
	if _, err := integrators.New(c.Integrator); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// GetInitState maps the friendly init_state fields to the model's state
// vector.
func (c *Config) GetInitState() []float64 {
	switch c.Model {
	case "projectile":
		return models.LaunchState(c.InitState.Speed, c.InitState.Angle, c.InitState.Height)
	case "parachute":
		return []float64{c.InitState.Altitude, c.InitState.Velocity}
	case "bounce":
		h := c.InitState.Height
		if h == 0 {
			h = DefaultDropHeight
		}
		return []float64{h, c.InitState.Velocity}
	case "solar":
		orbits := c.InitState.Orbits
		if len(orbits) == 0 {
			orbits = models.DefaultOrbits
		}
		gm := models.GMSun
		if v, ok := c.Params["gm"]; ok {
			gm = v
		}
		return models.CircularOrbits(gm, orbits)
	default:
		return nil
	}
}

// MaxTicks converts the duration cap to ticks; zero means uncapped.
func (c *Config) MaxTicks() int {
	if c.Duration == 0 {
		return 0
	}
	return int(math.Ceil(c.Duration / c.Quality))
}

func (c *Config) Layout(frameSize int) frame.Layout {
	return frame.Layout{
		Quality:    c.Quality,
		BufferSize: c.BufferSize,
		FrameSize:  frameSize,
	}
}

// Session builds the transport session config, sizing frames for the model.
func (c *Config) Session(fs FrameSizer) (buffer.Config, error) {
	if err := c.Validate(); err != nil {
		return buffer.Config{}, err
	}
	state := c.GetInitState()
	size, err := fs.FrameSize(c.Model, state)
	if err != nil {
		return buffer.Config{}, err
	}
	return buffer.Config{
		Session:        uuid.New(),
		Model:          c.Model,
		State:          state,
		Params:         c.Params,
		Layout:         c.Layout(size),
		BufferLimit:    c.BufferLimit,
		AllowedBuffers: c.AllowedBuffers,
		MaxTicks:       c.MaxTicks(),
	}, nil
}
