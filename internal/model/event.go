// Package model defines the core data structures for the tally application.
package model

import (
	"time"
)

// EventKind identifies the concrete type of a financial event.
type EventKind string

// Event kind constants.
const (
	KindPayment         EventKind = "payment"
	KindCardTransaction EventKind = "card_transaction"
	KindRequestInquiry  EventKind = "request_inquiry"
	KindRequestResponse EventKind = "request_response"
	KindBunqMeTab       EventKind = "bunqme_tab"
)

// Money is an amount with its currency code. Comparisons in the rule
// engine use Value only; currency codes are never converted.
type Money struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"`
}

// Event is a read-only financial event fetched from a bank export or API.
// The rule engine never mutates an event; categorization is recorded in
// storage, not on the event itself.
type Event interface {
	// Kind returns the event kind tag.
	Kind() EventKind
	// EventID returns the stable identifier of the event.
	EventID() string
}

// Payment is a regular account payment (incoming or outgoing).
type Payment struct {
	Date             time.Time `json:"date"`
	ID               string    `json:"id"`
	Description      string    `json:"description"`
	CounterpartyName string    `json:"counterparty_name"`
	CounterpartyIBAN string    `json:"counterparty_iban"`
	AccountID        string    `json:"account_id"`
	Amount           Money     `json:"amount"`
}

// Kind implements Event.
func (p Payment) Kind() EventKind { return KindPayment }

// EventID implements Event.
func (p Payment) EventID() string { return p.ID }

// CardTransaction is a debit or credit card transaction.
type CardTransaction struct {
	Date             time.Time `json:"date"`
	ID               string    `json:"id"`
	Description      string    `json:"description"`
	CounterpartyName string    `json:"counterparty_name"`
	CounterpartyIBAN string    `json:"counterparty_iban"`
	CardID           string    `json:"card_id"`
	AccountID        string    `json:"account_id"`
	Amount           Money     `json:"amount"`
}

// Kind implements Event.
func (c CardTransaction) Kind() EventKind { return KindCardTransaction }

// EventID implements Event.
func (c CardTransaction) EventID() string { return c.ID }

// RequestInquiry is a payment request sent to a counterparty.
type RequestInquiry struct {
	Date             time.Time `json:"date"`
	ID               string    `json:"id"`
	Description      string    `json:"description"`
	CounterpartyName string    `json:"counterparty_name"`
	CounterpartyIBAN string    `json:"counterparty_iban"`
	Amount           Money     `json:"amount"`
}

// Kind implements Event.
func (r RequestInquiry) Kind() EventKind { return KindRequestInquiry }

// EventID implements Event.
func (r RequestInquiry) EventID() string { return r.ID }

// RequestResponse is a payment request received from a counterparty.
type RequestResponse struct {
	Date             time.Time `json:"date"`
	ID               string    `json:"id"`
	Description      string    `json:"description"`
	CounterpartyName string    `json:"counterparty_name"`
	CounterpartyIBAN string    `json:"counterparty_iban"`
	Amount           Money     `json:"amount"`
}

// Kind implements Event.
func (r RequestResponse) Kind() EventKind { return KindRequestResponse }

// EventID implements Event.
func (r RequestResponse) EventID() string { return r.ID }

// BunqMeTab is a shareable payment link. Tabs have no counterparty until
// someone pays them, so counterparty fields are not applicable.
type BunqMeTab struct {
	Date        time.Time `json:"date"`
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      Money     `json:"amount"`
}

// Kind implements Event.
func (b BunqMeTab) Kind() EventKind { return KindBunqMeTab }

// EventID implements Event.
func (b BunqMeTab) EventID() string { return b.ID }
