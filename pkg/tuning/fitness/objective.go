// Package fitness turns gene vectors into natural frequencies and scores
// them against a target spectrum.
package fitness

import (
	"math"
	"sort"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

// FailedFitness is the score of a candidate whose frequencies could not be
// computed. It is finite so failed candidates still rank, last.
const FailedFitness = 1e6

// PenaltyType selects the geometric penalty blended into the fitness.
type PenaltyType string

const (
	PenaltyNone      PenaltyType = "none"
	PenaltyVolume    PenaltyType = "volume"
	PenaltyRoughness PenaltyType = "roughness"
)

// TuningError is the weighted mean squared relative error in percent:
// 100·Σ w·((f-t)/t)² / Σ w, with weight f1Priority on the fundamental and 1
// elsewhere. Modes with a zero target are ignored.
func TuningError(computed, targets []float64, f1Priority float64) float64 {
	n := min(len(computed), len(targets))
	sum, weights := 0.0, 0.0
	for i := 0; i < n; i++ {
		if targets[i] == 0 {
			continue
		}
		w := 1.0
		if i == 0 {
			w = f1Priority
		}
		rel := (computed[i] - targets[i]) / targets[i]
		sum += w * rel * rel
		weights += w
	}
	if weights <= 0 {
		return math.Inf(1)
	}
	return 100 * sum / weights
}

// MaxTuningError is the largest per-mode squared relative error in percent.
func MaxTuningError(computed, targets []float64) float64 {
	n := min(len(computed), len(targets))
	if n == 0 {
		return math.Inf(1)
	}
	worst := 0.0
	for i := 0; i < n; i++ {
		if targets[i] == 0 {
			continue
		}
		rel := (computed[i] - targets[i]) / targets[i]
		worst = math.Max(worst, rel*rel)
	}
	return 100 * worst
}

// Cents returns 1200·log2(f/target), or 0 when target is not positive.
func Cents(f, target float64) float64 {
	if target <= 0 || f <= 0 {
		return 0
	}
	return 1200 * math.Log2(f/target)
}

// VolumePenalty is the percentage of the half-bar side profile removed by
// the cuts, clamped to [0, 100].
func VolumePenalty(cuts []framework.Cut, l, h0 float64) float64 {
	if len(cuts) == 0 {
		return 0
	}
	sorted := append([]framework.Cut(nil), cuts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Lambda < sorted[j].Lambda })

	removed, prev := 0.0, 0.0
	for _, c := range sorted {
		if c.Lambda > prev && c.Lambda > 0 {
			removed += (c.Lambda - prev) * (h0 - c.H)
			prev = c.Lambda
		}
	}
	pct := 100 * removed / (l / 2 * h0)
	return math.Max(0, math.Min(100, pct))
}

// RoughnessPenalty is the mean height step across visible cut boundaries
// relative to h0, in percent.
func RoughnessPenalty(cuts []framework.Cut, h0 float64) float64 {
	if len(cuts) == 0 {
		return 0
	}
	sorted := append([]framework.Cut(nil), cuts...)
	framework.SortCutsDescending(sorted)

	sum := math.Abs(h0 - sorted[0].H)
	count := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Lambda < sorted[i-1].Lambda {
			sum += math.Abs(sorted[i-1].H - sorted[i].H)
			count++
		}
	}
	return 100 * sum / (float64(count) * h0)
}

// Combine blends tuning error and penalty: (1-α)·tuning + α·penalty.
func Combine(tuning, penalty, alpha float64) float64 {
	return (1-alpha)*tuning + alpha*penalty
}
