// Package ofx parses OFX/QFX bank exports into tally events.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/fintally/tally/internal/model"
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files:
	// an opening tag alone on its line with no closing bracket
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX file. Bank statement lines become
// Payment events, credit card statement lines become CardTransaction
// events.
func (p *Parser) ParseFile(_ context.Context, reader io.Reader) ([]model.Event, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	// Statement currency is not normalized; rule operands compare raw
	// values regardless of currency.
	currency := "EUR"
	var events []model.Event
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		accountID := string(stmt.BankAcctFrom.AcctID)
		for _, ofxTx := range stmt.BankTranList.Transactions {
			events = append(events, p.convertPayment(ofxTx, accountID, currency))
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		ccStmts++
		accountID := string(stmt.CCAcctFrom.AcctID)
		for _, ofxTx := range stmt.BankTranList.Transactions {
			events = append(events, p.convertCardTransaction(ofxTx, accountID, currency))
		}
	}

	slog.Info("Parsed OFX file",
		"total_events", len(events),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return events, nil
}

func (p *Parser) convertPayment(ofxTx ofxgo.Transaction, accountID, currency string) model.Payment {
	amount, _ := ofxTx.TrnAmt.Float64()

	return model.Payment{
		ID:               string(ofxTx.FiTID),
		Date:             ofxTx.DtPosted.Time,
		Description:      string(ofxTx.Name),
		CounterpartyName: p.counterpartyName(ofxTx),
		AccountID:        accountID,
		Amount:           model.Money{Value: amount, Currency: currency},
	}
}

func (p *Parser) convertCardTransaction(ofxTx ofxgo.Transaction, accountID, currency string) model.CardTransaction {
	amount, _ := ofxTx.TrnAmt.Float64()

	return model.CardTransaction{
		ID:               string(ofxTx.FiTID),
		Date:             ofxTx.DtPosted.Time,
		Description:      string(ofxTx.Name),
		CounterpartyName: p.counterpartyName(ofxTx),
		AccountID:        accountID,
		Amount:           model.Money{Value: amount, Currency: currency},
	}
}

// counterpartyName tries to get a clean counterparty name from OFX
// data, preferring PAYEE over the raw NAME field.
func (p *Parser) counterpartyName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := strings.TrimSpace(string(tx.Name))
	if name == "" {
		name = strings.TrimSpace(string(tx.Memo))
	}

	// Strip common processor prefixes
	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	upper := strings.ToUpper(name)
	for _, prefix := range prefixes {
		if strings.HasPrefix(upper, prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}

	return name
}
