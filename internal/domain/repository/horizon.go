package repository

import (
	"fmt"
	"time"
)

// Horizon is a forecast lead time.
type Horizon string

const (
	H15m Horizon = "15m"
	H1h  Horizon = "1h"
	H4h  Horizon = "4h"
	H24h Horizon = "24h"
)

// HorizonConfig holds per-horizon derived constants.
type HorizonConfig struct {
	BarSize       time.Duration
	HorizonBars   int
	LookbackBars  int // always 8x HorizonBars
	ForwardWindow time.Duration
	MaxDrawdown   float64 // fraction, e.g. 0.001
}

var horizonConfigs = map[Horizon]HorizonConfig{
	H15m: {BarSize: time.Minute, HorizonBars: 15, LookbackBars: 120, ForwardWindow: 15 * time.Minute, MaxDrawdown: 0.001},
	H1h:  {BarSize: 5 * time.Minute, HorizonBars: 12, LookbackBars: 96, ForwardWindow: time.Hour, MaxDrawdown: 0.002},
	H4h:  {BarSize: 15 * time.Minute, HorizonBars: 16, LookbackBars: 128, ForwardWindow: 4 * time.Hour, MaxDrawdown: 0.004},
	H24h: {BarSize: time.Hour, HorizonBars: 24, LookbackBars: 192, ForwardWindow: 24 * time.Hour, MaxDrawdown: 0.008},
}

// AllHorizons returns the supported horizons in ascending lead-time order.
func AllHorizons() []Horizon {
	return []Horizon{H15m, H1h, H4h, H24h}
}

// IsValidHorizon returns true if h is a supported horizon.
func IsValidHorizon(h Horizon) bool {
	_, ok := horizonConfigs[h]
	return ok
}

// DefaultHorizon returns the default horizon.
func DefaultHorizon() Horizon { return H1h }

// NormalizeHorizon converts a raw string to a valid horizon (or default).
func NormalizeHorizon(s string) Horizon {
	if s == "" {
		return DefaultHorizon()
	}
	h := Horizon(s)
	if IsValidHorizon(h) {
		return h
	}
	return DefaultHorizon()
}

// ConfigFor returns the derived constants for a horizon.
func ConfigFor(h Horizon) (HorizonConfig, error) {
	cfg, ok := horizonConfigs[h]
	if !ok {
		return HorizonConfig{}, fmt.Errorf("unsupported horizon: %s", h)
	}
	return cfg, nil
}

// Duration returns the lead time covered by the horizon.
func (h Horizon) Duration() time.Duration {
	cfg, ok := horizonConfigs[h]
	if !ok {
		return 0
	}
	return time.Duration(cfg.HorizonBars) * cfg.BarSize
}

// ValidateHorizonConfigs checks the static horizon table at startup.
// A broken lookback ratio or window mismatch is a configuration error
// and must abort the process before any round runs.
func ValidateHorizonConfigs() error {
	for h, cfg := range horizonConfigs {
		if cfg.HorizonBars <= 0 {
			return fmt.Errorf("horizon %s: horizon bars must be positive", h)
		}
		if cfg.LookbackBars != 8*cfg.HorizonBars {
			return fmt.Errorf("horizon %s: lookback bars %d != 8x horizon bars %d", h, cfg.LookbackBars, cfg.HorizonBars)
		}
		if cfg.ForwardWindow != time.Duration(cfg.HorizonBars)*cfg.BarSize {
			return fmt.Errorf("horizon %s: forward window %s does not cover %d bars of %s", h, cfg.ForwardWindow, cfg.HorizonBars, cfg.BarSize)
		}
		if cfg.MaxDrawdown <= 0 || cfg.MaxDrawdown >= 1 {
			return fmt.Errorf("horizon %s: max drawdown %f out of range", h, cfg.MaxDrawdown)
		}
	}
	return nil
}
