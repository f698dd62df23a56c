package dtw

import (
	"fmt"

	"ShapeFinder/internal/domain/models"
)

// Mode selects the DTW algorithm.
type Mode string

const (
	ModeExact  Mode = "exact"
	ModeApprox Mode = "approx"
	ModeAuto   Mode = "auto"
)

const (
	DefaultApproxThreshold = 1024
	DefaultRadius          = 1
)

// ParseMode maps a config value to a Mode. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeExact, ModeApprox:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown distance mode %q", s)
}

// Engine computes DTW distances according to its mode. It is stateless and
// safe for concurrent use.
type Engine struct {
	mode            Mode
	approxThreshold int
	radius          int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode sets the algorithm selection mode.
func WithMode(m Mode) Option {
	return func(e *Engine) {
		if m != "" {
			e.mode = m
		}
	}
}

// WithApproxThreshold sets the length above which auto mode approximates.
func WithApproxThreshold(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.approxThreshold = n
		}
	}
}

// WithRadius sets the FastDTW search radius.
func WithRadius(r int) Option {
	return func(e *Engine) {
		if r >= 0 {
			e.radius = r
		}
	}
}

// NewEngine returns an auto-mode engine unless overridden by opts.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		mode:            ModeAuto,
		approxThreshold: DefaultApproxThreshold,
		radius:          DefaultRadius,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode reports the configured mode.
func (e *Engine) Mode() Mode { return e.mode }

// Resolve returns the algorithm used for sequences of lengths n and m.
func (e *Engine) Resolve(n, m int) Mode {
	switch e.mode {
	case ModeExact, ModeApprox:
		return e.mode
	}
	if n > e.approxThreshold || m > e.approxThreshold {
		return ModeApprox
	}
	return ModeExact
}

// Distance returns the DTW distance between a and b.
func (e *Engine) Distance(a, b models.FeatureSequence) (float64, error) {
	if e.Resolve(len(a), len(b)) == ModeApprox {
		d, _, err := FastDistance(a, b, e.radius)
		return d, err
	}
	return Distance(a, b)
}

// DistanceWithPath returns the distance and the warping path that realises it.
func (e *Engine) DistanceWithPath(a, b models.FeatureSequence) (float64, Path, error) {
	if e.Resolve(len(a), len(b)) == ModeApprox {
		return FastDistance(a, b, e.radius)
	}
	return DistanceWithPath(a, b)
}
