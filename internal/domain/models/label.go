package models

import "time"

// ReferenceExtreme is the most extreme price level in the lookback
// window. CandlesBack is measured from the most-recently-closed candle
// (index 0 = most recent closed bar; the forming candle is never part
// of the window).
type ReferenceExtreme struct {
	Price       float64
	CandlesBack int
}

// PivotMark records where in the forward window the reference level
// was first violated.
type PivotMark struct {
	Index int
	At    time.Time
}

// GroundTruthLabel is the resolved outcome for one (symbol, horizon,
// instant). Label is true when the reference level held through the
// forward window.
type GroundTruthLabel struct {
	Label            bool
	RefPrice         float64
	RefCandlesBack   int
	ForwardExtreme   float64
	Pivot            *PivotMark // nil when the level held
	TimeToPivotRatio float64    // 0 when the level held
	MaxDrawdown      float64    // worst adverse move from entry, as a fraction
}

// ResolutionState distinguishes a label that has not been computed yet
// from one that failed to resolve.
type ResolutionState int

const (
	ResolutionPending ResolutionState = iota
	ResolutionDone
	ResolutionFailed
)

// LabelResolution wraps a GroundTruthLabel with its resolution state so
// "not filled yet" is structurally distinct from "failed".
type LabelResolution struct {
	State ResolutionState
	Label GroundTruthLabel
}

// Resolved builds a done resolution.
func Resolved(l GroundTruthLabel) LabelResolution {
	return LabelResolution{State: ResolutionDone, Label: l}
}

// FailedResolution marks a label that could not be computed.
func FailedResolution() LabelResolution {
	return LabelResolution{State: ResolutionFailed}
}
