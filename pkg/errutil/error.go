package errutil

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	Unauthorized    Code = "Unauthorized"
	NotFound        Code = "NotFound"
	BadRequest      Code = "BadRequest"
	UpstreamFailure Code = "UpstreamFailure"
	Internal        Code = "InternalError"
)

type BaseError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e BaseError) Unwrap() error {
	return e.Err
}

func (e BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

type Option func(*BaseError)

func WithErr(err error) Option {
	return func(be *BaseError) { be.Err = err }
}

func New(code Code, message string, opts ...Option) error {
	be := BaseError{Code: code, Message: message}
	for _, opt := range opts {
		opt(&be)
	}
	return be
}

func NewNotFound(message string, opts ...Option) error {
	return New(NotFound, message, opts...)
}

func NewBadRequest(message string, opts ...Option) error {
	return New(BadRequest, message, opts...)
}

func NewUnauthorized(message string, opts ...Option) error {
	return New(Unauthorized, message, opts...)
}

func NewUpstream(message string, opts ...Option) error {
	return New(UpstreamFailure, message, opts...)
}

func NewInternal(message string, opts ...Option) error {
	return New(Internal, message, opts...)
}

// CodeOf returns the code of the outermost BaseError in the chain, Internal otherwise.
func CodeOf(err error) Code {
	var be BaseError
	if errors.As(err, &be) {
		return be.Code
	}
	return Internal
}

// Message returns the human readable part of err without the code prefix.
func Message(err error) string {
	var be BaseError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case BadRequest:
		return http.StatusBadRequest
	case UpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
