package service

import "errors"

// ErrClientClosed indicates the client has been closed.
var ErrClientClosed = errors.New("murmur: client is closed")

// ErrValidation indicates a request was rejected before reaching storage or
// providers. Handlers map it to a 400 response.
var ErrValidation = errors.New("murmur: invalid request")
