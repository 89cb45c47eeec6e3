package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubHistory struct {
	descriptions []string
	err          error
}

func (s stubHistory) Descriptions(context.Context, uuid.UUID) ([]string, error) {
	return s.descriptions, s.err
}

func TestFilter_CaseInsensitiveSubstringInCatalogOrder(t *testing.T) {
	catalog := []string{"Pan", "Leche", "Pan de campo"}

	assert.Equal(t, []string{"Pan", "Pan de campo"}, Filter(catalog, "pan", 5))
	assert.Equal(t, []string{"Pan de campo"}, Filter(catalog, "CAMPO", 5))
}

func TestFilter_Limit(t *testing.T) {
	catalog := []string{"Queso", "Queso crema", "Queso rallado", "Queso azul", "Queso brie", "Queso fresco"}

	got := Filter(catalog, "queso", DefaultSuggestionLimit)
	assert.Len(t, got, 5)
	assert.Equal(t, catalog[:5], got)
	assert.Equal(t, []string{"Queso"}, Filter(catalog, "queso", 1))
}

func TestFilter_EmptyQueryOrNoMatch(t *testing.T) {
	catalog := []string{"Pan"}

	assert.Empty(t, Filter(catalog, "", 5))
	assert.Empty(t, Filter(catalog, "yerba", 5))
	assert.Empty(t, Filter(catalog, "pan", 0))
}

func TestMerge_DeduplicatesAndSorts(t *testing.T) {
	got := Merge([]string{"Yerba", "Pan", "Yerba"}, []string{"Pan", "Azúcar", "Leche"})

	assert.Equal(t, []string{"Azúcar", "Leche", "Pan", "Yerba"}, got)
}

func TestMerge_SpanishCollation(t *testing.T) {
	got := Merge(nil, []string{"Zanahoria", "Ñoquis", "Nuez", "Azúcar", "Aceite"})

	assert.Equal(t, []string{"Aceite", "Azúcar", "Nuez", "Ñoquis", "Zanahoria"}, got)
}

func TestMerge_KeepsCaseVariants(t *testing.T) {
	got := Merge([]string{"pan casero"}, []string{"Pan casero"})
	assert.Len(t, got, 2)
}

func TestLoadCatalog_MergesHistory(t *testing.T) {
	src := stubHistory{descriptions: []string{"Alfajor"}}

	got := LoadCatalog(context.Background(), src, uuid.New(), zap.NewNop())

	require.NotEmpty(t, got)
	assert.Equal(t, "Aceite", got[0])
	assert.Contains(t, got, "Alfajor")
	assert.Len(t, got, len(SeedProducts)+1)
}

func TestLoadCatalog_FallsBackToSeed(t *testing.T) {
	src := stubHistory{err: errors.New("connection refused")}

	got := LoadCatalog(context.Background(), src, uuid.New(), zap.NewNop())

	assert.Len(t, got, len(SeedProducts))
	assert.ElementsMatch(t, SeedProducts, got)
}
