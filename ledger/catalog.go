package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultSuggestionLimit caps how many suggestions are offered while typing
const DefaultSuggestionLimit = 5

// SeedProducts is the basic grocery vocabulary offered before any history exists
var SeedProducts = []string{
	"Pan lactal",
	"Pan de campo",
	"Facturas",
	"Medialunas",
	"Leche",
	"Yogur",
	"Queso",
	"Manteca",
	"Huevos",
	"Jamón",
	"Queso crema",
	"Salchichas",
	"Mortadela",
	"Fiambre",
	"Aceite",
	"Vinagre",
	"Sal",
	"Azúcar",
	"Café",
	"Té",
	"Galletitas",
	"Cereales",
	"Arroz",
	"Fideos",
	"Harina",
	"Polenta",
	"Tomate",
	"Cebolla",
	"Papa",
	"Zanahoria",
	"Lechuga",
	"Manzana",
	"Banana",
	"Naranja",
	"Gaseosa",
	"Agua mineral",
	"Jugo",
	"Cerveza",
	"Vino",
	"Detergente",
	"Lavandina",
	"Jabón",
	"Shampoo",
	"Pasta dental",
	"Papel higiénico",
	"Servilletas",
	"Bolsas",
	"Helado",
	"Chocolate",
	"Caramelos",
	"Chicles",
}

// HistorySource yields the descriptions a merchant already used
type HistorySource interface {
	Descriptions(ctx context.Context, merchantID uuid.UUID) ([]string, error)
}

// Merge unions historical descriptions with the seed list and sorts the result
// with Spanish collation. Entries are compared exactly, so "pan" and "Pan" both stay.
func Merge(historical []string, seed []string) []string {
	seen := make(map[string]bool, len(historical)+len(seed))
	merged := make([]string, 0, len(historical)+len(seed))
	for _, list := range [][]string{historical, seed} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			merged = append(merged, s)
		}
	}

	collate.New(language.Spanish).SortStrings(merged)
	return merged
}

// Filter returns up to limit catalog entries containing query, ignoring case,
// in catalog order.
func Filter(catalog []string, query string, limit int) []string {
	matches := []string{}
	if query == "" || limit <= 0 {
		return matches
	}

	q := strings.ToLower(query)
	for _, product := range catalog {
		if strings.Contains(strings.ToLower(product), q) {
			matches = append(matches, product)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches
}

// LoadCatalog builds the suggestion catalog of a merchant. When the history
// cannot be read the seed list is used alone.
func LoadCatalog(ctx context.Context, src HistorySource, merchantID uuid.UUID, logger *zap.Logger) []string {
	if src == nil {
		return Merge(nil, SeedProducts)
	}

	history, err := src.Descriptions(ctx, merchantID)
	if err != nil {
		logger.Warn("product history unavailable, using seed list",
			zap.String("merchant_id", merchantID.String()),
			zap.Error(err))
		return Merge(nil, SeedProducts)
	}
	return Merge(history, SeedProducts)
}
