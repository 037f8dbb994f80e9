package room

import "errors"

var (
	// ErrDuplicateMutation indicates that the client already submitted a mutation with this id
	ErrDuplicateMutation = errors.New("mutation already applied")

	// ErrRoomClosed indicates that the room was closed by its manager
	ErrRoomClosed = errors.New("room is closed")

	// ErrInvalidMutation indicates a mutation without id or name
	ErrInvalidMutation = errors.New("invalid mutation")
)
