package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/fieldgraph/pkg/interp"
	"github.com/chazu/fieldgraph/pkg/measure"
	"github.com/chazu/fieldgraph/pkg/weight"
)

// Config selects how samples are blended. It is read from FIELD_* variables,
// which may come from a .env file.
type Config struct {
	// Method is nearest, idw, space-adjusted-idw, softmax, gaussian or falloff.
	Method string
	// Power is the IDW exponent.
	Power float64
	// Measure is euclidean or surface.
	Measure string
	// Sigma is the gaussian width.
	Sigma float64
	// Radius and Curve shape the falloff kernel.
	Radius float64
	Curve  string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Method:  interp.MethodIDW.String(),
		Power:   interp.DefaultPower,
		Measure: "euclidean",
		Sigma:   1,
		Radius:  10,
		Curve:   "linear",
	}
}

// ConfigFromEnv overlays the defaults with the variables getenv returns.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(getenv("FIELD_METHOD")); v != "" {
		cfg.Method = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv("FIELD_MEASURE")); v != "" {
		cfg.Measure = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv("FIELD_CURVE")); v != "" {
		cfg.Curve = strings.ToLower(v)
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"FIELD_POWER", &cfg.Power},
		{"FIELD_SIGMA", &cfg.Sigma},
		{"FIELD_RADIUS", &cfg.Radius},
	}
	for _, f := range floats {
		v := strings.TrimSpace(getenv(f.name))
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", f.name, err)
		}
		*f.dst = x
	}
	return cfg, nil
}

// Strategy builds the interpolation strategy named by Method.
func (c Config) Strategy() (interp.Strategy, error) {
	switch c.Method {
	case "softmax":
		return interp.Kernel{Transform: weight.Softmax{}}, nil
	case "gaussian":
		return interp.Kernel{Transform: weight.Gaussian{Sigma: c.Sigma}}, nil
	case "falloff":
		curve, err := weight.CurveByName(c.Curve)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		return interp.Kernel{Transform: weight.Falloff{Radius: c.Radius, Curve: curve}}, nil
	}

	m, err := interp.ParseMethod(c.Method)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return interp.Options{Method: m, Power: c.Power}.Strategy()
}

// DistanceMeasure returns the measure named by Measure.
func (c Config) DistanceMeasure() (measure.Measure, error) {
	m, ok := measure.Names[c.Measure]
	if !ok {
		return nil, fmt.Errorf("config: unknown measure %q (want euclidean or surface)", c.Measure)
	}
	return m, nil
}
