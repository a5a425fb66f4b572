// Package batchsize implements BatchSizeController: given the last batch
// size, observed duration, and actual row count, returns the next batch
// size bounded by [min, max] (§4.4).
package batchsize

import "time"

// Bounds configures the adjustment policy. Zero values fall back to the
// spec's defaults in Adjust.
type Bounds struct {
	Min           int
	Max           int
	TargetSeconds float64
}

// DefaultBounds matches §4.4's defaults.
func DefaultBounds() Bounds {
	return Bounds{Min: 100, Max: 2000, TargetSeconds: 20}
}

// InitialSize returns requestedSize if positive, else the engine default
// of 1000 (§4.4).
func InitialSize(requestedSize int) int {
	if requestedSize > 0 {
		return requestedSize
	}
	return 1000
}

// Adjust returns the next batch size given the current size, the row
// count actually processed, the elapsed duration of the work that
// justifies resizing, and bounds. Zero-value bounds fields fall back to
// DefaultBounds.
func Adjust(current, rowCount int, elapsed time.Duration, b Bounds) int {
	if b.Min <= 0 && b.Max <= 0 && b.TargetSeconds <= 0 {
		b = DefaultBounds()
	}
	if b.Min <= 0 {
		b.Min = DefaultBounds().Min
	}
	if b.Max <= 0 {
		b.Max = DefaultBounds().Max
	}
	if b.TargetSeconds <= 0 {
		b.TargetSeconds = DefaultBounds().TargetSeconds
	}

	if rowCount <= 0 {
		return current
	}

	target := time.Duration(b.TargetSeconds * float64(time.Second))
	elapsedSeconds := elapsed.Seconds()

	if elapsedSeconds > 1.5*b.TargetSeconds {
		next := current / 2
		if next < b.Min {
			next = b.Min
		}
		return next
	}

	if elapsed < target/2 && rowCount >= current {
		next := current * 2
		if next > b.Max {
			next = b.Max
		}
		return next
	}

	return current
}
