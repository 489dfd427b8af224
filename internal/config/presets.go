package config

import "sort"

var Presets = map[string]map[string]*Config{
	"projectile": {
		"classic": {
			Model: "projectile", Quality: 0.01, Duration: 30,
			InitState: InitStateConfig{Speed: 20, Angle: 45},
		},
		"moon": {
			Model: "projectile", Quality: 0.01, Duration: 60,
			InitState: InitStateConfig{Speed: 20, Angle: 45},
			Params:    map[string]float64{"gravity": 1.62},
		},
		"cliff": {
			Model: "projectile", Quality: 0.01, Duration: 30,
			InitState: InitStateConfig{Speed: 15, Angle: 10, Height: 50},
			Params:    map[string]float64{"drag": 0.1},
		},
	},
	"parachute": {
		"skydive": {
			Model: "parachute", Quality: 0.01, Duration: 600, Speed: 10,
			InitState: InitStateConfig{Altitude: 3000},
		},
		"low": {
			Model: "parachute", Quality: 0.01, Duration: 300, Speed: 5,
			InitState: InitStateConfig{Altitude: 1000},
			Params:    map[string]float64{"deploy_altitude": 600},
		},
	},
	"bounce": {
		"rubber": {
			Model: "bounce", Quality: 0.005, Duration: 60,
			InitState: InitStateConfig{Height: 2},
			Params:    map[string]float64{"restitution": 0.8},
		},
		"tennis": {
			Model: "bounce", Quality: 0.005, Duration: 60,
			InitState: InitStateConfig{Height: 2},
			Params:    map[string]float64{"restitution": 0.7},
		},
		"clay": {
			Model: "bounce", Quality: 0.005, Duration: 30,
			InitState: InitStateConfig{Height: 2},
			Params:    map[string]float64{"restitution": 0.3},
		},
	},
	"solar": {
		"inner": {
			Model: "solar", Quality: 0.0005, Duration: 5, Speed: 0.25,
			InitState: InitStateConfig{Orbits: []float64{0.387, 0.723, 1.0, 1.524}},
		},
		"earth": {
			Model: "solar", Quality: 0.0005, Duration: 3, Speed: 0.25,
			InitState: InitStateConfig{Orbits: []float64{1.0}},
		},
	},
}

// GetPreset returns a copy of the named preset with unset transport fields
// filled from the defaults, or nil.
func GetPreset(model, name string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	p, ok := modelPresets[name]
	if !ok {
		return nil
	}

	cfg := *p
	d := DefaultConfig()
	if cfg.BufferSize == 0 {
		cfg.BufferSize = d.BufferSize
	}
	if cfg.BufferLimit == 0 {
		cfg.BufferLimit = d.BufferLimit
	}
	if cfg.Speed == 0 {
		cfg.Speed = d.Speed
	}
	if cfg.FPS == 0 {
		cfg.FPS = d.FPS
	}
	if cfg.Params != nil {
		cfg.Params = make(map[string]float64, len(p.Params))
		for k, v := range p.Params {
			cfg.Params[k] = v
		}
	}
	cfg.InitState.Orbits = append([]float64(nil), p.InitState.Orbits...)
	return &cfg
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
