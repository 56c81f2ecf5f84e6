package websocket

import "errors"

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNotInRoom      = errors.New("client has not joined this session")
	ErrRelayClosed    = errors.New("relay closed")
	ErrNotSubscribed  = errors.New("relay not subscribed")
)
