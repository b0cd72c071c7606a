package battle

import "errors"

// Validation errors: the request itself is malformed. Nothing was mutated.
var (
	ErrBadPlayerCount  = errors.New("battle: player count must be between 2 and 6")
	ErrBadMode         = errors.New("battle: unknown game mode")
	ErrNoBoxes         = errors.New("battle: a game needs at least one box")
	ErrBadBoxCount     = errors.New("battle: box count must be at least 1")
	ErrUnknownBox      = errors.New("battle: box is not active or does not exist")
	ErrJackpotModifier = errors.New("battle: jackpot cannot be combined with cursed or terminal")
	ErrTeamPlayerCount = errors.New("battle: team mode needs an even player count")
)

// Precondition errors: the request is well formed but the game's current
// state forbids it. Nothing was mutated; the caller may retry or pick another
// action.
var (
	ErrGameNotFound        = errors.New("battle: game not found")
	ErrGameBusy            = errors.New("battle: game not available")
	ErrNotJoinable         = errors.New("battle: game is not accepting joins")
	ErrBadSlot             = errors.New("battle: slot out of range")
	ErrSlotTaken           = errors.New("battle: slot already occupied")
	ErrAlreadyJoined       = errors.New("battle: user already has a bet in this game")
	ErrLevelTooLow         = errors.New("battle: user level below game minimum")
	ErrAffiliateOnly       = errors.New("battle: game restricted to the creator's affiliates")
	ErrInsufficientBalance = errors.New("battle: insufficient balance")
	ErrNotCreator          = errors.New("battle: only the creator can do this")
	ErrNotCancelable       = errors.New("battle: game can no longer be canceled")
)
