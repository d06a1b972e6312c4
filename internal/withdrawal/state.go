package withdrawal

import (
	"fmt"

	apperrors "github.com/lirepay/walletcore/pkg/errors"
	"github.com/lirepay/walletcore/pkg/models"
)

// CanTransition reports whether a withdrawal request may move from one
// status to another. All transition checks go through here: pending is the
// only non-terminal state, and approved, rejected and cancelled are final.
func CanTransition(from, to models.WithdrawalStatus) bool {
	if from != models.WithdrawalPending {
		return false
	}
	switch to {
	case models.WithdrawalApproved, models.WithdrawalRejected, models.WithdrawalCancelled:
		return true
	}
	return false
}

// transitionError builds the invalid-state error for a refused transition.
func transitionError(from, to models.WithdrawalStatus) error {
	return apperrors.InvalidState(fmt.Sprintf("cannot transition withdrawal request from %s to %s", from, to))
}
