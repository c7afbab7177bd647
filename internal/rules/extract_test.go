package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintally/tally/internal/model"
)

func TestExtract(t *testing.T) {
	payment := model.Payment{
		ID:               "p-1",
		Description:      "  Groceries at the market  ",
		CounterpartyName: "Albert Heijn",
		CounterpartyIBAN: "NL91ABNA0417164300",
		Amount:           model.Money{Value: -42.50, Currency: "EUR"},
	}
	tab := model.BunqMeTab{
		ID:          "t-1",
		Description: "Dinner split",
		Amount:      model.Money{Value: 15.00, Currency: "EUR"},
	}

	tests := []struct {
		event    model.Event
		name     string
		wantText string
		field    model.FieldSelector
		wantNum  float64
		wantKind ValueKind
		wantErr  bool
	}{
		{
			name:     "amount from payment",
			event:    payment,
			field:    model.FieldAmount,
			wantKind: NumberValue,
			wantNum:  -42.50,
		},
		{
			name:     "description is trimmed",
			event:    payment,
			field:    model.FieldDescription,
			wantKind: TextValue,
			wantText: "Groceries at the market",
		},
		{
			name:     "counterparty name from payment",
			event:    payment,
			field:    model.FieldCounterpartyName,
			wantKind: TextValue,
			wantText: "Albert Heijn",
		},
		{
			name:     "counterparty iban from payment",
			event:    payment,
			field:    model.FieldCounterpartyIBAN,
			wantKind: TextValue,
			wantText: "NL91ABNA0417164300",
		},
		{
			name:     "event type tag",
			event:    payment,
			field:    model.FieldEventType,
			wantKind: TextValue,
			wantText: "payment",
		},
		{
			name:    "counterparty not applicable on tab",
			event:   tab,
			field:   model.FieldCounterpartyIBAN,
			wantErr: true,
		},
		{
			name:     "amount from tab",
			event:    tab,
			field:    model.FieldAmount,
			wantKind: NumberValue,
			wantNum:  15.00,
		},
		{
			name:    "unknown field selector",
			event:   payment,
			field:   model.FieldSelector("card_color"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := Extract(tt.event, tt.field)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrFieldNotApplicable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, value.Kind)
			if tt.wantKind == NumberValue {
				assert.InDelta(t, tt.wantNum, value.Number, 0.001)
			} else {
				assert.Equal(t, tt.wantText, value.Text)
			}
		})
	}
}

func TestExtractAllKindsHaveAmount(t *testing.T) {
	amount := model.Money{Value: 9.99, Currency: "EUR"}
	events := []model.Event{
		model.Payment{ID: "1", Amount: amount},
		model.CardTransaction{ID: "2", Amount: amount},
		model.RequestInquiry{ID: "3", Amount: amount},
		model.RequestResponse{ID: "4", Amount: amount},
		model.BunqMeTab{ID: "5", Amount: amount},
	}

	for _, event := range events {
		value, err := Extract(event, model.FieldAmount)
		require.NoError(t, err, "kind %s", event.Kind())
		assert.InDelta(t, 9.99, value.Number, 0.001, "kind %s", event.Kind())
	}
}
