package models

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrStoreFailure       = errors.New("store failure")

	ErrInvalidNickname   = errors.New("nickname must be 1-20 characters")
	ErrInvalidTransition = errors.New("invalid room status transition")
	ErrDeckExhausted     = errors.New("deck exhausted")

	// ErrCodeTaken is returned by a store when a room code is already in use.
	ErrCodeTaken = errors.New("room code already in use")
)
