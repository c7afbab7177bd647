package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fintally/tally/internal/common"
	"github.com/fintally/tally/internal/model"
	"github.com/fintally/tally/internal/service"
)

// SaveEvents inserts a batch of events, ignoring ones already present.
func (s *SQLiteStorage) SaveEvents(ctx context.Context, events []model.Event) error {
	return saveEvents(ctx, s.db, events)
}

// SaveEvents inserts a batch of events within a transaction.
func (t *sqliteTransaction) SaveEvents(ctx context.Context, events []model.Event) error {
	return saveEvents(ctx, t.tx, events)
}

// GetEvents retrieves events matching the filter, newest first.
func (s *SQLiteStorage) GetEvents(ctx context.Context, filter service.EventFilter) ([]model.Event, error) {
	return getEvents(ctx, s.db, filter)
}

// GetEvents retrieves events within a transaction.
func (t *sqliteTransaction) GetEvents(ctx context.Context, filter service.EventFilter) ([]model.Event, error) {
	return getEvents(ctx, t.tx, filter)
}

// GetEventByID retrieves a single event.
func (s *SQLiteStorage) GetEventByID(ctx context.Context, id string) (model.Event, error) {
	return getEventByID(ctx, s.db, id)
}

// GetEventByID retrieves a single event within a transaction.
func (t *sqliteTransaction) GetEventByID(ctx context.Context, id string) (model.Event, error) {
	return getEventByID(ctx, t.tx, id)
}

// SetEventCategory records the category a rule (or the user) assigned.
func (s *SQLiteStorage) SetEventCategory(ctx context.Context, eventID, category string) error {
	return setEventCategory(ctx, s.db, eventID, category)
}

// SetEventCategory records a category within a transaction.
func (t *sqliteTransaction) SetEventCategory(ctx context.Context, eventID, category string) error {
	return setEventCategory(ctx, t.tx, eventID, category)
}

// FlagEventForReview marks an event for manual review.
func (s *SQLiteStorage) FlagEventForReview(ctx context.Context, eventID string) error {
	return flagEventForReview(ctx, s.db, eventID)
}

// FlagEventForReview marks an event within a transaction.
func (t *sqliteTransaction) FlagEventForReview(ctx context.Context, eventID string) error {
	return flagEventForReview(ctx, t.tx, eventID)
}

func saveEvents(ctx context.Context, q querier, events []model.Event) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	query := `
		INSERT OR IGNORE INTO events (
			id, kind, date, description, counterparty_name, counterparty_iban,
			card_id, account_id, amount, currency
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, event := range events {
		row := eventToRow(event)
		_, err := q.ExecContext(ctx, query,
			row.id, row.kind, row.date, row.description,
			row.counterpartyName, row.counterpartyIBAN,
			row.cardID, row.accountID, row.amount, row.currency,
		)
		if err != nil {
			return fmt.Errorf("failed to save event %s: %w", row.id, err)
		}
	}

	return nil
}

func getEvents(ctx context.Context, q querier, filter service.EventFilter) ([]model.Event, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, kind, date, description, counterparty_name, counterparty_iban,
			card_id, account_id, amount, currency
		FROM events
		WHERE 1=1
	`
	var args []any

	if filter.StartDate != nil {
		query += " AND date >= ?"
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += " AND date <= ?"
		args = append(args, *filter.EndDate)
	}
	if filter.Kind != nil {
		query += " AND kind = ?"
		args = append(args, string(*filter.Kind))
	}
	if filter.Uncategorized {
		query += " AND category IS NULL AND flagged = 0"
	}

	query += " ORDER BY date DESC, id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

func getEventByID(ctx context.Context, q querier, id string) (model.Event, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, kind, date, description, counterparty_name, counterparty_iban,
			card_id, account_id, amount, currency
		FROM events
		WHERE id = ?
	`

	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get event: %w", err)
		}
		return nil, fmt.Errorf("event %s: %w", id, common.ErrNotFound)
	}

	return scanEvent(rows)
}

func setEventCategory(ctx context.Context, q querier, eventID, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(eventID, "eventID"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx,
		"UPDATE events SET category = ? WHERE id = ?", category, eventID)
	if err != nil {
		if isBusy(err) {
			return fmt.Errorf("failed to set event category: %w", common.ErrBusy)
		}
		return fmt.Errorf("failed to set event category: %w", err)
	}

	return requireRowAffected(result, "event")
}

func flagEventForReview(ctx context.Context, q querier, eventID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(eventID, "eventID"); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx,
		"UPDATE events SET flagged = 1 WHERE id = ?", eventID)
	if err != nil {
		if isBusy(err) {
			return fmt.Errorf("failed to flag event: %w", common.ErrBusy)
		}
		return fmt.Errorf("failed to flag event: %w", err)
	}

	return requireRowAffected(result, "event")
}

func requireRowAffected(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return nil
}

// eventRow is the flat column layout events persist as; kind selects
// which model variant a row hydrates into.
type eventRow struct {
	date             time.Time
	id               string
	kind             string
	description      string
	currency         string
	counterpartyName sql.NullString
	counterpartyIBAN sql.NullString
	cardID           sql.NullString
	accountID        sql.NullString
	amount           float64
}

func eventToRow(event model.Event) eventRow {
	row := eventRow{id: event.EventID(), kind: string(event.Kind())}

	switch e := event.(type) {
	case model.Payment:
		row.date = e.Date
		row.description = e.Description
		row.counterpartyName = nullString(e.CounterpartyName)
		row.counterpartyIBAN = nullString(e.CounterpartyIBAN)
		row.accountID = nullString(e.AccountID)
		row.amount = e.Amount.Value
		row.currency = e.Amount.Currency
	case model.CardTransaction:
		row.date = e.Date
		row.description = e.Description
		row.counterpartyName = nullString(e.CounterpartyName)
		row.counterpartyIBAN = nullString(e.CounterpartyIBAN)
		row.cardID = nullString(e.CardID)
		row.accountID = nullString(e.AccountID)
		row.amount = e.Amount.Value
		row.currency = e.Amount.Currency
	case model.RequestInquiry:
		row.date = e.Date
		row.description = e.Description
		row.counterpartyName = nullString(e.CounterpartyName)
		row.counterpartyIBAN = nullString(e.CounterpartyIBAN)
		row.amount = e.Amount.Value
		row.currency = e.Amount.Currency
	case model.RequestResponse:
		row.date = e.Date
		row.description = e.Description
		row.counterpartyName = nullString(e.CounterpartyName)
		row.counterpartyIBAN = nullString(e.CounterpartyIBAN)
		row.amount = e.Amount.Value
		row.currency = e.Amount.Currency
	case model.BunqMeTab:
		row.date = e.Date
		row.description = e.Description
		row.amount = e.Amount.Value
		row.currency = e.Amount.Currency
	}

	return row
}

func scanEvent(rows *sql.Rows) (model.Event, error) {
	var row eventRow
	err := rows.Scan(
		&row.id, &row.kind, &row.date, &row.description,
		&row.counterpartyName, &row.counterpartyIBAN,
		&row.cardID, &row.accountID, &row.amount, &row.currency,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	return rowToEvent(row)
}

func rowToEvent(row eventRow) (model.Event, error) {
	amount := model.Money{Value: row.amount, Currency: row.currency}

	switch model.EventKind(row.kind) {
	case model.KindPayment:
		return model.Payment{
			ID: row.id, Date: row.date, Description: row.description,
			CounterpartyName: row.counterpartyName.String,
			CounterpartyIBAN: row.counterpartyIBAN.String,
			AccountID:        row.accountID.String,
			Amount:           amount,
		}, nil
	case model.KindCardTransaction:
		return model.CardTransaction{
			ID: row.id, Date: row.date, Description: row.description,
			CounterpartyName: row.counterpartyName.String,
			CounterpartyIBAN: row.counterpartyIBAN.String,
			CardID:           row.cardID.String,
			AccountID:        row.accountID.String,
			Amount:           amount,
		}, nil
	case model.KindRequestInquiry:
		return model.RequestInquiry{
			ID: row.id, Date: row.date, Description: row.description,
			CounterpartyName: row.counterpartyName.String,
			CounterpartyIBAN: row.counterpartyIBAN.String,
			Amount:           amount,
		}, nil
	case model.KindRequestResponse:
		return model.RequestResponse{
			ID: row.id, Date: row.date, Description: row.description,
			CounterpartyName: row.counterpartyName.String,
			CounterpartyIBAN: row.counterpartyIBAN.String,
			Amount:           amount,
		}, nil
	case model.KindBunqMeTab:
		return model.BunqMeTab{
			ID: row.id, Date: row.date, Description: row.description,
			Amount: amount,
		}, nil
	}

	return nil, fmt.Errorf("unknown event kind %q for event %s", row.kind, row.id)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// errNoRows reports whether err is the driver's no-rows sentinel.
func errNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
