package granting

import (
	"github.com/microcred/microcred-api/internal/models"
)

// Policy decides whether a participant may receive an award. It runs
// before the ledger write and must not touch storage; swapping in a
// rule-based implementation (prerequisite awards, point thresholds) does
// not change the granting algorithm.
type Policy interface {
	Eligible(participant *models.User, award *models.Award) (bool, string)
}

// AllowAll is the default policy: everything is achievable.
type AllowAll struct{}

func (AllowAll) Eligible(_ *models.User, _ *models.Award) (bool, string) {
	return true, "OK"
}
