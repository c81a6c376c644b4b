package room

import "github.com/lox/pokerrooms/internal/game"

// Room level rejections. Seat and rule errors come from package game.
var (
	ErrRoomNotFound = game.NewError("room_not_found", "room not found")
	ErrRoomClosed   = game.NewError("room_closed", "room is closed")
	ErrNotInRoom    = game.NewError("not_in_room", "join or create a room first")
	ErrInvalidName  = game.NewError("invalid_name", "player name is required")
	ErrEmptyMessage = game.NewError("empty_message", "chat message is empty")
	ErrNoFreeCode   = game.NewError("no_free_code", "could not allocate a room code")
	ErrInvalidToken = game.NewError("invalid_token", "rejoin token does not match this seat")
)
