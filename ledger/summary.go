package ledger

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jupark12/fiado/models"
)

const dateLayout = "02/01/2006"

var nonDigits = regexp.MustCompile(`\D`)

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// StatementText renders the account of a client as a plain-text message:
// balance, numbered purchase history and the date it was issued.
// Payments are left out of the history but already reflected in the balance.
func StatementText(merchant models.Merchant, client models.Client, txs []models.Transaction, issuedAt time.Time) string {
	title := merchant.Name
	if title == "" {
		title = "Cuenta"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s - %s*\n\n", title, client.Name)
	fmt.Fprintf(&b, "*Saldo Actual:* %s\n\n", money(client.Balance))
	b.WriteString("*Historial de Compras:*\n")

	n := 0
	for _, tx := range txs {
		if tx.Type != models.Debit {
			continue
		}
		if n > 0 {
			b.WriteString("\n\n")
		}
		n++

		desc := tx.Description
		if desc == "" {
			desc = "Sin descripción"
		}
		qty := tx.Quantity
		if qty <= 0 {
			qty = 1
		}
		each := tx.Amount.DivRound(decimal.NewFromInt(int64(qty)), 2)
		fmt.Fprintf(&b, "%d. %s\n   Cant: %d x %s = %s\n   %s",
			n, desc, qty, money(each), money(tx.Amount), tx.CreatedAt.Format(dateLayout))
	}

	fmt.Fprintf(&b, "\n\n*Total Adeudado:* %s\n\n", money(client.Balance))
	fmt.Fprintf(&b, "_Emitido el %s_", issuedAt.Format(dateLayout))
	return b.String()
}

// ReminderText is the short balance reminder sent from the client list
func ReminderText(client models.Client) string {
	return fmt.Sprintf("Hola %s, te paso el resumen de tu cuenta al día de hoy: %s. ¡Saludos!",
		client.Name, money(client.Balance))
}

// WhatsAppLink builds a wa.me link that opens a chat with text prefilled.
// It returns "" when phone has no digits.
func WhatsAppLink(phone, text string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	if digits == "" {
		return ""
	}
	return "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// ClientsSummary aggregates the client list of a merchant
type ClientsSummary struct {
	Clients         int             `json:"clients"`
	TotalOwed       decimal.Decimal `json:"total_owed"`
	ClientsWithDebt int             `json:"clients_with_debt"`
	ClientsAtRisk   int             `json:"clients_at_risk"`
}

func SummarizeClients(clients []models.Client) ClientsSummary {
	summary := ClientsSummary{Clients: len(clients), TotalOwed: decimal.Zero}
	for _, c := range clients {
		summary.TotalOwed = summary.TotalOwed.Add(c.Balance)
		if c.HasDebt() {
			summary.ClientsWithDebt++
		}
		if c.AtRisk() {
			summary.ClientsAtRisk++
		}
	}
	return summary
}

// SearchClients keeps clients whose name contains term (ignoring case) or whose
// phone contains it. An empty term keeps everyone.
func SearchClients(clients []models.Client, term string) []models.Client {
	if term == "" {
		return clients
	}
	lower := strings.ToLower(term)
	found := make([]models.Client, 0, len(clients))
	for _, c := range clients {
		if strings.Contains(strings.ToLower(c.Name), lower) ||
			(c.Phone != nil && strings.Contains(*c.Phone, term)) {
			found = append(found, c)
		}
	}
	return found
}
