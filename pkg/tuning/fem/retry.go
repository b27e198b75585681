package fem

import (
	"context"
	"fmt"
	"math"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
)

// Regularization describes a diagonal perturbation of the mass matrix.
// Each diagonal entry receives
//
//	Relative·max(|M_ii|, Floor) + Scaled·max_j |M_jj| + Absolute.
type Regularization struct {
	Relative float64
	Floor    float64
	Scaled   float64
	Absolute float64
}

func (r Regularization) apply(m *System) {
	maxDiag := 0.0
	if r.Scaled != 0 {
		maxDiag = m.MaxAbsDiag()
	}
	d := m.Diag()
	for i, v := range d {
		d[i] = r.Relative*math.Max(math.Abs(v), r.Floor) + r.Scaled*maxDiag + r.Absolute
	}
	m.AddDiag(d)
}

// RetryPolicy lists the regularization applied before each attempt. Steps
// accumulate, so the perturbation grows monotonically. A zero step leaves
// the mass matrix untouched.
type RetryPolicy []Regularization

// Solve runs SolveGeneralized once per step until one attempt succeeds. The
// caller's mass matrix is not modified.
func (p RetryPolicy) Solve(ctx context.Context, k, m *System, opts EigenOptions) (Eigen, error) {
	logger := klog.FromContext(ctx)
	steps := p
	if len(steps) == 0 {
		steps = RetryPolicy{{}}
	}
	work := m.Clone()
	var errs []error
	for attempt, reg := range steps {
		reg.apply(work)
		e, err := SolveGeneralized(k, work, opts)
		if err == nil {
			if attempt > 0 {
				logger.V(4).Info("eigen solve recovered after regularization", "attempt", attempt+1, "dofs", m.Size())
			}
			return e, nil
		}
		logger.V(4).Info("eigen solve failed", "attempt", attempt+1, "dofs", m.Size(), "err", err)
		errs = append(errs, fmt.Errorf("attempt %d: %w", attempt+1, err))
	}
	return Eigen{}, utilerrors.NewAggregate(errs)
}
