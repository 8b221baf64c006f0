package handlers

import (
	"errors"
	"net/http"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
	apperrors "github.com/slspinola/bee2waste-sub002/pkg/errors"
)

// mapDomainError translates typed domain errors into the stable API error
// codes. Anything else passes through for the responder's default mapping.
func mapDomainError(err error) error {
	var (
		invalidTransition    *domain.InvalidTransitionError
		invalidLotTransition *domain.InvalidLotTransitionError
		concurrentMod        *domain.ConcurrentModificationError
		staleWeighing        *domain.StaleWeighingError
		negativeNet          *domain.NegativeNetWeightError
		classification       *domain.ClassificationMismatchError
		noCapacity           *domain.NoCapacityError
		conflict             *domain.ConcurrentAllocationConflictError
		imbalance            *domain.LedgerImbalanceError
	)

	switch {
	case errors.As(err, &invalidTransition):
		return apperrors.NewAppError(apperrors.CodeInvalidTransition, invalidTransition.Error(), http.StatusConflict)
	case errors.As(err, &invalidLotTransition):
		return apperrors.NewAppError(apperrors.CodeInvalidTransition, invalidLotTransition.Error(), http.StatusConflict)
	case errors.As(err, &concurrentMod):
		return apperrors.NewAppError(apperrors.CodeConflict, concurrentMod.Error(), http.StatusConflict)
	case errors.As(err, &staleWeighing):
		return apperrors.NewAppError(apperrors.CodeStaleWeighing, staleWeighing.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &negativeNet):
		return apperrors.NewAppError(apperrors.CodeNegativeNetWeight, negativeNet.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &classification):
		return apperrors.NewAppError(apperrors.CodeClassificationInvalid, classification.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &noCapacity):
		return apperrors.NewAppError(apperrors.CodeNoCapacity, noCapacity.Error(), http.StatusConflict).
			WithPayload(noCapacity.Rejected)
	case errors.As(err, &conflict):
		return apperrors.NewAppError(apperrors.CodeAllocationConflict, conflict.Error(), http.StatusConflict)
	case errors.As(err, &imbalance):
		return apperrors.NewAppError(apperrors.CodeLedgerImbalance, imbalance.Error(), http.StatusInternalServerError)
	}
	return err
}
