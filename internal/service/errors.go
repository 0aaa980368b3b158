package service

import "errors"

var (
	// ErrNotConfirmed is returned when acceptance is requested without the confirmation checkbox.
	ErrNotConfirmed = errors.New("disclaimer confirmation not checked")
	// ErrPersistenceUnavailable wraps store write failures. The decision stays effective for the session.
	ErrPersistenceUnavailable = errors.New("client store unavailable")
	// ErrMalformedRecord marks a stored record that could not be parsed. It is logged, never returned.
	ErrMalformedRecord = errors.New("malformed stored record")
	// ErrGateClosed is returned by consent writes before the disclaimer is accepted.
	ErrGateClosed = errors.New("disclaimer not accepted")
)
