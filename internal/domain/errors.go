package domain

import "errors"

var (
	// ErrEmptyUser is returned when an attempt is started without a username.
	ErrEmptyUser = errors.New("username must not be empty")
	// ErrSessionNotFound is returned when no session exists for the given key.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNotRunning is returned for transitions attempted outside the running phase.
	ErrNotRunning = errors.New("quiz session is not running")
	// ErrOptionNotFound indicates a selected option is not one of the question's options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAnswerRequired gates advance/submit until the current question is answered.
	// It is a recoverable warning, not a fatal condition.
	ErrAnswerRequired = errors.New("answer the current question first")
	// ErrBankNotFound indicates the question bank source is absent.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrBankFormat indicates the question bank source is malformed.
	ErrBankFormat = errors.New("question bank is malformed")
	// ErrPersistence indicates the result store could not be written or read.
	ErrPersistence = errors.New("result store failure")
)
