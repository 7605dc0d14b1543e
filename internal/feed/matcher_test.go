package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/dtos"
)

func TestExtractQuantity(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"12 units", 12},
		{"N/A", 0},
		{"-5", 0},
		{"3.7", 3},
		{"", 0},
		{"  42 ", 42},
		{">100", 100},
		{"0.4", 0},
		{"1.2.3", 0},
		{"99999999999", 2147483647},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractQuantity(tt.raw), "raw %q", tt.raw)
	}
}

func scenarioDoc(t *testing.T) *dtos.FeedDocument {
	t.Helper()
	doc, err := Parse([]byte("code,qty\nA1,10\nA2,0\nA3,abc\n"), ParseOptions{Delimiter: ',', HasHeader: true})
	require.NoError(t, err)
	return doc
}

func TestFindStock_Scenario(t *testing.T) {
	doc := scenarioDoc(t)

	tests := []struct {
		sku  string
		want dtos.StockResult
	}{
		{"A1", dtos.StockResult{Quantity: 10, Available: true, Found: true}},
		{"A2", dtos.StockResult{Quantity: 0, Available: false, Found: true}},
		{"A3", dtos.StockResult{Quantity: 0, Available: false, Found: true}},
		{"Z9", dtos.StockResult{Quantity: 0, Available: false}},
	}
	for _, tt := range tests {
		got, err := FindStock(doc, dtos.Identity{SKU: tt.sku}, "code", "qty", constants.MatchOnSKU)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.sku)
		assert.Equal(t, tt.want.Quantity, got.Quantity)
		assert.Equal(t, tt.want.Available, got.Available)
	}
}

func TestFindStock_MatchFieldExclusive(t *testing.T) {
	doc, err := Parse([]byte("id,qty\nSKU-1,5\n8712345678901,9\n"), ParseOptions{Delimiter: ',', HasHeader: true})
	require.NoError(t, err)

	identity := dtos.Identity{SKU: "SKU-1", EAN: "0000000000000"}
	got, err := FindStock(doc, identity, "id", "qty", constants.MatchOnEAN)
	require.NoError(t, err)
	assert.False(t, got.Available, "sku match must be ignored in ean mode")

	identity = dtos.Identity{SKU: "other", EAN: "8712345678901"}
	got, err = FindStock(doc, identity, "id", "qty", constants.MatchOnSKU)
	require.NoError(t, err)
	assert.False(t, got.Available, "ean match must be ignored in sku mode")

	got, err = FindStock(doc, identity, "id", "qty", constants.MatchOnEAN)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Quantity)
}

func TestFindStock_FirstMatchWins(t *testing.T) {
	doc, err := Parse([]byte("sku,qty\nA1,3\nA1,50\n"), ParseOptions{Delimiter: ',', HasHeader: true})
	require.NoError(t, err)

	got, err := FindStock(doc, dtos.Identity{SKU: "A1"}, "sku", "qty", constants.MatchOnSKU)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
}

func TestFindStock_EmptyIdentityNeverMatches(t *testing.T) {
	doc, err := Parse([]byte("sku,ean,qty\nA1,,4\n"), ParseOptions{Delimiter: ',', HasHeader: true})
	require.NoError(t, err)
	require.Len(t, doc.Rows, 1)

	got, err := FindStock(doc, dtos.Identity{SKU: "A1"}, "ean", "qty", constants.MatchOnEAN)
	require.NoError(t, err)
	assert.False(t, got.Found)
}

func TestFindStock_Positional(t *testing.T) {
	doc, err := Parse([]byte("A1;7\nA2;2\n"), ParseOptions{Delimiter: ';'})
	require.NoError(t, err)

	got, err := FindStock(doc, dtos.Identity{SKU: "A2"}, "0", "1", constants.MatchOnSKU)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)

	_, err = FindStock(doc, dtos.Identity{SKU: "A2"}, "sku", "1", constants.MatchOnSKU)
	assert.Error(t, err)
}

func TestFindStock_RequiresColumns(t *testing.T) {
	_, err := FindStock(scenarioDoc(t), dtos.Identity{SKU: "A1"}, "", "qty", constants.MatchOnSKU)
	assert.Error(t, err)
}

func TestMissingColumns(t *testing.T) {
	doc := scenarioDoc(t)
	assert.Empty(t, MissingColumns(doc, "code", "qty"))
	assert.Equal(t, []string{"stock"}, MissingColumns(doc, "code", "stock"))
}
