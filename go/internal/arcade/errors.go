package arcade

import "github.com/mcdev12/arena/go/internal/gameerr"

var (
	ErrInsufficientBalance = gameerr.New(gameerr.KindValidation, "INSUFFICIENT_BALANCE", "your balance does not cover the entry fee")
	ErrInvalidToken        = gameerr.New(gameerr.KindValidation, "INVALID_TOKEN", "the session token is not valid for this run")
	ErrInvalidScore        = gameerr.New(gameerr.KindValidation, "INVALID_SCORE", "the submitted score is not valid")
	ErrInvalidPlayer       = gameerr.New(gameerr.KindValidation, "INVALID_PLAYER", "player identity is required")

	ErrTimeExpired      = gameerr.New(gameerr.KindPhase, "TIME_EXPIRED", "the run has no time remaining")
	ErrAlreadySubmitted = gameerr.New(gameerr.KindConcurrency, "ALREADY_SUBMITTED", "a score was already submitted for this run")

	ErrGameNotFound = gameerr.New(gameerr.KindNotFound, "GAME_NOT_FOUND", "arcade game not found")
	ErrRunNotFound  = gameerr.New(gameerr.KindNotFound, "RUN_NOT_FOUND", "arcade run not found")
)
