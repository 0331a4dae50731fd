package bridge

import (
	"github.com/hxuan190/quote-engine/internal/domain"
)

// Reduce collapses a multi-step status report into one status.
//
// With no steps the order is PENDING. A single step reports the overall status
// the bridge returned (falling back to the step's own). For several steps the
// precedence is: last step SUCCESS, then any step pending, then last step
// FAILED after an earlier SUCCESS (PARTIAL_SUCCESS), then the last step as is.
func Reduce(overall domain.BridgeStatus, steps []domain.StepStatus) domain.BridgeStatus {
	switch len(steps) {
	case 0:
		return domain.StatusPending
	case 1:
		if overall != "" {
			return overall
		}
		return steps[0].Status
	}

	last := steps[len(steps)-1].Status
	if last == domain.StatusSuccess {
		return domain.StatusSuccess
	}
	for _, s := range steps {
		if s.Status.IsPending() {
			return domain.StatusPending
		}
	}
	if last == domain.StatusFailed {
		for _, s := range steps[:len(steps)-1] {
			if s.Status == domain.StatusSuccess {
				return domain.StatusPartialSuccess
			}
		}
	}
	return last
}

// ReduceReport is Reduce over a raw status payload.
func ReduceReport(r *domain.BridgeStatusReport) domain.BridgeStatus {
	if r == nil {
		return domain.StatusPending
	}
	return Reduce(r.Status, r.Steps)
}
