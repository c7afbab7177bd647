package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fintally/tally/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrEmptySlice   = errors.New("slice cannot be empty")
	ErrInvalidEvent = errors.New("invalid event")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateEvents validates a slice of events.
func validateEvents(events []model.Event) error {
	if events == nil {
		return fmt.Errorf("%w: events", ErrNilParameter)
	}
	if len(events) == 0 {
		return fmt.Errorf("%w: events", ErrEmptySlice)
	}

	for i, event := range events {
		if event == nil {
			return fmt.Errorf("event at index %d: %w: event", i, ErrNilParameter)
		}
		if event.EventID() == "" {
			return fmt.Errorf("event at index %d: %w: missing ID", i, ErrInvalidEvent)
		}
	}
	return nil
}
