// Package rules evaluates user-authored rule collections against
// financial events to auto-assign categories or flag events for review.
package rules

import (
	"errors"
	"strings"

	"github.com/fintally/tally/internal/model"
)

// ErrFieldNotApplicable is returned when an event kind does not carry
// the requested field. The condition evaluator treats it as a non-match.
var ErrFieldNotApplicable = errors.New("field not applicable to event kind")

// ValueKind tags the type of an extracted field value.
type ValueKind int

// Value kinds.
const (
	NumberValue ValueKind = iota
	TextValue
)

// Value is a field value extracted from an event.
type Value struct {
	Text   string
	Number float64
	Kind   ValueKind
}

// Extract reads the selected field from an event. Amount extraction
// returns the raw signed value; currency codes are never compared or
// converted, which is a known limitation for multi-currency accounts.
// Text values are trimmed of surrounding whitespace.
func Extract(event model.Event, field model.FieldSelector) (Value, error) {
	switch field {
	case model.FieldAmount:
		return Value{Kind: NumberValue, Number: amountOf(event)}, nil
	case model.FieldDescription:
		return textValue(descriptionOf(event)), nil
	case model.FieldEventType:
		return textValue(string(event.Kind())), nil
	case model.FieldCounterpartyName:
		name, _, ok := counterpartyOf(event)
		if !ok {
			return Value{}, ErrFieldNotApplicable
		}
		return textValue(name), nil
	case model.FieldCounterpartyIBAN:
		_, iban, ok := counterpartyOf(event)
		if !ok {
			return Value{}, ErrFieldNotApplicable
		}
		return textValue(iban), nil
	}

	return Value{}, ErrFieldNotApplicable
}

func textValue(s string) Value {
	return Value{Kind: TextValue, Text: strings.TrimSpace(s)}
}

// amountOf matches exhaustively over event kinds; adding a kind without
// extending this switch leaves the new kind amountless, so keep the
// cases in sync with model.EventKind.
func amountOf(event model.Event) float64 {
	switch e := event.(type) {
	case model.Payment:
		return e.Amount.Value
	case model.CardTransaction:
		return e.Amount.Value
	case model.RequestInquiry:
		return e.Amount.Value
	case model.RequestResponse:
		return e.Amount.Value
	case model.BunqMeTab:
		return e.Amount.Value
	}
	return 0
}

func descriptionOf(event model.Event) string {
	switch e := event.(type) {
	case model.Payment:
		return e.Description
	case model.CardTransaction:
		return e.Description
	case model.RequestInquiry:
		return e.Description
	case model.RequestResponse:
		return e.Description
	case model.BunqMeTab:
		return e.Description
	}
	return ""
}

// counterpartyOf returns the counterparty name and IBAN, or ok=false
// for event kinds that have no counterparty (bunq.me tabs).
func counterpartyOf(event model.Event) (name, iban string, ok bool) {
	switch e := event.(type) {
	case model.Payment:
		return e.CounterpartyName, e.CounterpartyIBAN, true
	case model.CardTransaction:
		return e.CounterpartyName, e.CounterpartyIBAN, true
	case model.RequestInquiry:
		return e.CounterpartyName, e.CounterpartyIBAN, true
	case model.RequestResponse:
		return e.CounterpartyName, e.CounterpartyIBAN, true
	case model.BunqMeTab:
		return "", "", false
	}
	return "", "", false
}
