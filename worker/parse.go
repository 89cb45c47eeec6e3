package worker

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jupark12/fiado/ledger"
	"github.com/jupark12/fiado/models"
)

// importedDescription labels a statement line that carries no text of its own
const importedDescription = "Importado"

var (
	// dd/mm/yy or dd/mm/yyyy
	datePattern   = regexp.MustCompile(`\b\d{2}/\d{2}/(?:\d{4}|\d{2})\b`)
	amountPattern = regexp.MustCompile(`\$?\s?(\d[\d.,]*\d|\d)`)
	creditWords   = []string{"pago", "payment", "abono"}
)

// StatementLine is one dated movement read from an uploaded ledger
type StatementLine struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Type        models.TransactionType
}

// ExtractEntries keeps the lines that carry a date and a positive amount.
// Lines without a date are headers or footers and are ignored; dated lines
// that cannot be read are counted as skipped.
func ExtractEntries(lines []string) ([]StatementLine, int) {
	entries := []StatementLine{}
	skipped := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		loc := datePattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		date, err := parseDate(line[loc[0]:loc[1]])
		if err != nil {
			skipped++
			continue
		}

		rest := line[loc[1]:]
		matches := amountPattern.FindAllStringSubmatchIndex(rest, -1)
		if len(matches) == 0 {
			skipped++
			continue
		}
		last := matches[len(matches)-1]
		amount, ok := normalizeAmount(rest[last[2]:last[3]])
		if !ok || !amount.IsPositive() {
			skipped++
			continue
		}

		description := strings.TrimSpace(strings.TrimRight(rest[:last[0]], "$ \t-"))
		if description == "" {
			description = importedDescription
		}

		entries = append(entries, StatementLine{
			Date:        date,
			Description: description,
			Amount:      amount,
			Type:        lineType(line),
		})
	}
	return entries, skipped
}

func parseDate(s string) (time.Time, error) {
	if len(s) == len("02/01/2006") {
		return time.Parse("02/01/2006", s)
	}
	return time.Parse("02/01/06", s)
}

func lineType(line string) models.TransactionType {
	lower := strings.ToLower(line)
	for _, w := range creditWords {
		if strings.Contains(lower, w) {
			return models.Credit
		}
	}
	return models.Debit
}

// normalizeAmount accepts "1.234,50", "1,234.50", "1234,5" and "1234".
// When both separators appear the last one is the decimal point; a single
// separator followed by one or two digits is a decimal point, otherwise it
// groups thousands.
func normalizeAmount(raw string) (decimal.Decimal, bool) {
	lastDot := strings.LastIndex(raw, ".")
	lastComma := strings.LastIndex(raw, ",")

	var s string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(raw, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(raw, ",", "")
		}
	case lastDot >= 0 || lastComma >= 0:
		sep := "."
		idx := lastDot
		if lastComma >= 0 {
			sep, idx = ",", lastComma
		}
		decimals := len(raw) - idx - 1
		if strings.Count(raw, sep) == 1 && decimals <= 2 {
			s = strings.Replace(raw, sep, ".", 1)
		} else {
			s = strings.ReplaceAll(raw, sep, "")
		}
	default:
		s = raw
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// composeRows turns statement lines into ledger rows in statement order, each
// with its own type and date. Lines the composer rejects are counted.
func composeRows(merchant ledger.MerchantContext, clientID uuid.UUID, lines []StatementLine) ([]models.Transaction, int) {
	rows := make([]models.Transaction, 0, len(lines))
	rejected := 0
	for _, l := range lines {
		item, err := ledger.NewLineItem(l.Description, 1, decimal.NullDecimal{}, l.Amount)
		if err != nil {
			rejected++
			continue
		}
		rows = append(rows, ledger.Rows(merchant, clientID, l.Type, ledger.NewCart(item), l.Date)...)
	}
	return rows, rejected
}
