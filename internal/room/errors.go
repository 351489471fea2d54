package room

import "errors"

var (
	ErrRoomNotFound  = errors.New("Room not found")
	ErrRoomFull      = errors.New("Room is full")
	ErrNotInRoom     = errors.New("Not in a room")
	ErrAlreadyInRoom = errors.New("Already in a room")
)
