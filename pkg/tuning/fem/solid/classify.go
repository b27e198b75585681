package solid

import (
	"math"
	"sort"
)

// ModeType is a vibration mode family.
type ModeType string

const (
	VerticalBending ModeType = "vertical_bending"
	Torsional       ModeType = "torsional"
	Lateral         ModeType = "lateral"
	Axial           ModeType = "axial"
)

// ModeTypes lists the families in reporting order.
var ModeTypes = []ModeType{VerticalBending, Torsional, Lateral, Axial}

// ClassifiedMode is one mode placed in its family.
type ClassifiedMode struct {
	Type      ModeType `json:"type"`
	Frequency float64  `json:"frequency"`
	// Index is the position in the unclassified, ascending mode list.
	Index int `json:"index"`
	// Number is the 1-based rank within the family (V1, V2, T1...).
	Number int `json:"number"`
}

const cornerTol = 1e-6

// CornerNodes returns the top corners at the x-minimum end of the bar: s1 at
// maximum y and s2 at minimum y.
func CornerNodes(nodes [][3]float64) (s1, s2 int) {
	xMin := math.Inf(1)
	for _, n := range nodes {
		xMin = math.Min(xMin, n[0])
	}
	zMax := math.Inf(-1)
	for _, n := range nodes {
		if math.Abs(n[0]-xMin) < cornerTol {
			zMax = math.Max(zMax, n[2])
		}
	}
	s1, s2 = -1, -1
	for i, n := range nodes {
		if math.Abs(n[0]-xMin) >= cornerTol || math.Abs(n[2]-zMax) >= cornerTol {
			continue
		}
		if s1 < 0 || n[1] > nodes[s1][1] {
			s1 = i
		}
		if s2 < 0 || n[1] < nodes[s2][1] {
			s2 = i
		}
	}
	return s1, s2
}

// ClassifyMode applies the corner displacement criterion to one mode shape.
// The dominant axis at s1 selects lateral (y) or axial (x); a dominant z is
// vertical bending when both corners move the same way and torsional when
// they move in opposition.
func ClassifyMode(shape []float64, s1, s2 int) ModeType {
	p1 := shape[3*s1 : 3*s1+3]
	p2 := shape[3*s2 : 3*s2+3]

	dir := 0
	for i := 1; i < 3; i++ {
		if math.Abs(p1[i]) > math.Abs(p1[dir]) {
			dir = i
		}
	}
	switch dir {
	case 1:
		return Lateral
	case 0:
		return Axial
	}
	if sign(p1[2]) == sign(p2[2]) {
		return VerticalBending
	}
	return Torsional
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// ClassifyModes groups the modes of ms by family, each family sorted by
// frequency and numbered from 1. Every family key is present.
func ClassifyModes(ms *ModeSet) map[ModeType][]ClassifiedMode {
	out := make(map[ModeType][]ClassifiedMode, len(ModeTypes))
	for _, t := range ModeTypes {
		out[t] = nil
	}
	if ms == nil || ms.Shapes == nil || ms.Mesh == nil {
		return out
	}
	s1, s2 := CornerNodes(ms.Mesh.Nodes)
	_, cols := ms.Shapes.Dims()
	for i, f := range ms.Frequencies {
		if i >= cols {
			break
		}
		t := ClassifyMode(ms.Shape(i), s1, s2)
		out[t] = append(out[t], ClassifiedMode{Type: t, Frequency: f, Index: i})
	}
	for t, modes := range out {
		sort.SliceStable(modes, func(a, b int) bool { return modes[a].Frequency < modes[b].Frequency })
		for j := range modes {
			modes[j].Number = j + 1
		}
		out[t] = modes
	}
	return out
}
