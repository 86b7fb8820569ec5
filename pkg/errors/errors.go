package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML and data parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeValidation represents command argument validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeStorage represents JSON store errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeNotify represents message delivery errors
	ErrorTypeNotify ErrorType = "notify"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// BotError represents a bot-specific error
type BotError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *BotError) Unwrap() error {
	return e.Err
}

// IsFatal returns true when the error must terminate the process.
// Storage and configuration problems are never recovered from; all
// other failures abort at most the current run or command.
func (e *BotError) IsFatal() bool {
	switch e.Type {
	case ErrorTypeStorage, ErrorTypeConfiguration:
		return true
	default:
		return false
	}
}

// New creates a new BotError
func New(errType ErrorType, component, message string, err error) *BotError {
	return &BotError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(component, message string, err error) *BotError {
	return New(ErrorTypeNetwork, component, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(component, message string, err error) *BotError {
	return New(ErrorTypeParsing, component, message, err)
}

// NewValidation creates a new validation error
func NewValidation(component, message string) *BotError {
	return New(ErrorTypeValidation, component, message, nil)
}

// NewStorage creates a new storage error
func NewStorage(component, message string, err error) *BotError {
	return New(ErrorTypeStorage, component, message, err)
}

// NewNotify creates a new delivery error
func NewNotify(component, message string, err error) *BotError {
	return New(ErrorTypeNotify, component, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *BotError {
	return New(ErrorTypeConfiguration, "config", message, err)
}

// TypeOf returns the ErrorType carried by err, or the empty string when
// err is not a BotError.
func TypeOf(err error) ErrorType {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr.Type
	}
	return ""
}
