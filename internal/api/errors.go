package api

import (
	"errors"
	"net/http"

	"github.com/caseclash/backend/internal/battle"
	"github.com/caseclash/backend/internal/store"
)

// Error type discriminators in the JSON envelope.
const (
	ErrTypeValidation   = "validation"
	ErrTypePrecondition = "precondition"
	ErrTypeConflict     = "conflict"
	ErrTypeNotFound     = "not_found"
	ErrTypeInternal     = "internal"
)

// Error is the structured error envelope returned by every endpoint.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// classify maps engine errors onto an HTTP status and envelope type.
// Validation and precondition failures carry their message verbatim;
// everything unexpected collapses to an opaque internal error.
func classify(err error) (int, Error) {
	switch {
	case errorsIsAny(err,
		battle.ErrBadPlayerCount, battle.ErrBadMode, battle.ErrNoBoxes,
		battle.ErrBadBoxCount, battle.ErrUnknownBox, battle.ErrJackpotModifier,
		battle.ErrTeamPlayerCount, battle.ErrBadSlot):
		return http.StatusBadRequest, Error{Type: ErrTypeValidation, Message: err.Error()}

	case errorsIsAny(err,
		battle.ErrNotJoinable, battle.ErrSlotTaken, battle.ErrAlreadyJoined,
		battle.ErrLevelTooLow, battle.ErrAffiliateOnly, battle.ErrInsufficientBalance,
		battle.ErrNotCreator, battle.ErrNotCancelable):
		return http.StatusConflict, Error{Type: ErrTypePrecondition, Message: err.Error()}

	case errors.Is(err, battle.ErrGameBusy):
		return http.StatusConflict, Error{Type: ErrTypeConflict, Message: err.Error()}

	case errorsIsAny(err, battle.ErrGameNotFound, store.ErrUserNotFound):
		return http.StatusNotFound, Error{Type: ErrTypeNotFound, Message: err.Error()}

	default:
		return http.StatusInternalServerError, Error{Type: ErrTypeInternal, Message: "internal error"}
	}
}

func errorsIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
