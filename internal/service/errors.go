package service

import "errors"

// Matching service errors
var (
	ErrIdentityAlreadyUsed = errors.New("identity already used")
	ErrRoomNotFound        = errors.New("room not found")
)
