package game

import "github.com/mcdev12/arena/go/internal/gameerr"

var (
	ErrInvalidIdentity = gameerr.New(gameerr.KindValidation, "INVALID_IDENTITY", "player identity is required")
	ErrInvalidAction   = gameerr.New(gameerr.KindValidation, "INVALID_ACTION", "unknown action kind")
	ErrInvalidQuantity = gameerr.New(gameerr.KindValidation, "INVALID_QUANTITY", "quantity must be greater than 0")
	ErrInvalidSettings = gameerr.New(gameerr.KindValidation, "INVALID_SETTINGS", "invalid game settings")
	ErrInvalidTime     = gameerr.New(gameerr.KindValidation, "INVALID_TIME", "a clock reading is required")
	ErrUnauthorized    = gameerr.New(gameerr.KindValidation, "UNAUTHORIZED", "admin key is missing or wrong")
	ErrPaymentRejected = gameerr.New(gameerr.KindValidation, "PAYMENT_REJECTED", "payment could not be confirmed")

	ErrAlreadyJoined = gameerr.New(gameerr.KindValidation, "ALREADY_JOINED", "you have already joined this game")
	ErrSessionFull   = gameerr.New(gameerr.KindValidation, "SESSION_FULL", "this game is full")
	ErrWrongPhase    = gameerr.New(gameerr.KindPhase, "WRONG_PHASE", "that is not allowed in the current game phase")

	ErrNoPlayer        = gameerr.New(gameerr.KindNotFound, "NO_PLAYER", "you have not joined this game")
	ErrSessionNotFound = gameerr.New(gameerr.KindNotFound, "SESSION_NOT_FOUND", "game session not found")

	ErrBudgetExhausted = gameerr.New(gameerr.KindBudget, "BUDGET_EXHAUSTED", "no actions of that kind left")

	ErrNotWinner       = gameerr.New(gameerr.KindValidation, "NOT_WINNER", "only the winner can claim the prize")
	ErrAlreadyClaimed  = gameerr.New(gameerr.KindConcurrency, "ALREADY_CLAIMED", "the prize has already been claimed")
	ErrClaimNotPending = gameerr.New(gameerr.KindPhase, "CLAIM_NOT_PENDING", "there is no pending prize payout")

	ErrVersionConflict = gameerr.New(gameerr.KindConcurrency, "VERSION_CONFLICT", "the game changed while your request was processed, try again")
)
