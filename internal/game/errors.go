package game

import "errors"

// Error is a rejection that is reported back to the offending client. Code
// is stable and safe to put on the wire.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError creates a coded error. Compare instances with errors.Is.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Validation errors. A command rejected with any of these leaves the game
// exactly as it was.
var (
	ErrNotYourTurn          = NewError("not_your_turn", "not your turn")
	ErrMustCallOrFold       = NewError("must_call_or_fold", "cannot check, must call or fold")
	ErrRaiseTooLow          = NewError("raise_too_low", "raise must exceed the current bet")
	ErrInsufficientChips    = NewError("insufficient_chips", "insufficient chips")
	ErrInvalidAction        = NewError("invalid_action", "invalid action")
	ErrRoomFull             = NewError("room_full", "room is full")
	ErrBuyBackDisabled      = NewError("buy_back_disabled", "buy-backs are disabled")
	ErrBuyBackLimitReached  = NewError("buy_back_limit_reached", "buy-back limit reached")
	ErrBuyBackNotNeeded     = NewError("buy_back_not_needed", "buy-back only allowed with no chips")
	ErrNotEnoughPlayers     = NewError("not_enough_players", "Need at least 2 players")
	ErrNotHost              = NewError("not_host", "only the host can do that")
	ErrRoundInProgress      = NewError("round_in_progress", "a round is in progress")
	ErrNoRoundToFinish      = NewError("no_round_to_finish", "no finished round to move on from")
	ErrRoundAlreadyAdvanced = NewError("round_already_advanced", "round already advanced")
	ErrUnknownPlayer        = NewError("unknown_player", "unknown player")
	ErrNotShowdown          = NewError("not_showdown", "cards can only be revealed at showdown")
	ErrInvalidSettings      = NewError("invalid_settings", "invalid settings")
)

// ErrRoundAborted reports that the round was abandoned and chips were
// restored. It wraps the underlying cause, e.g. deck.ErrDeckExhausted.
var ErrRoundAborted = NewError("round_aborted", "round aborted")

type abortError struct {
	cause error
}

func (e *abortError) Error() string   { return "round aborted: " + e.cause.Error() }
func (e *abortError) Unwrap() []error { return []error{ErrRoundAborted, e.cause} }

// ErrorCode returns the wire code for err, or "internal" when err carries
// no code.
func ErrorCode(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return "internal"
}
