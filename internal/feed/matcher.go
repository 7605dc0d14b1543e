package feed

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/dtos"
)

// FindStock scans doc for the row belonging to id and extracts its quantity.
//
// Only the field selected by matchField is compared, by exact string equality,
// and the first matching row wins. No match yields quantity 0, unavailable.
// For header-less documents the columns are zero-based indexes.
func FindStock(doc *dtos.FeedDocument, id dtos.Identity, matchColumn, quantityColumn string, matchField constants.MatchField) (dtos.StockResult, error) {
	if matchColumn == "" || quantityColumn == "" {
		return dtos.StockResult{}, errors.New("match column and quantity column are required")
	}

	want := id.SKU
	if matchField == constants.MatchOnEAN {
		want = id.EAN
	}
	if want == "" {
		return dtos.StockResult{}, nil
	}

	if doc.HasHeader {
		for _, row := range doc.Rows {
			if row[matchColumn] == want {
				return stockResult(row[quantityColumn]), nil
			}
		}
		return dtos.StockResult{}, nil
	}

	matchIdx, err := columnIndex(matchColumn)
	if err != nil {
		return dtos.StockResult{}, err
	}
	qtyIdx, err := columnIndex(quantityColumn)
	if err != nil {
		return dtos.StockResult{}, err
	}
	for _, rec := range doc.Records {
		if matchIdx < len(rec) && rec[matchIdx] == want {
			raw := ""
			if qtyIdx < len(rec) {
				raw = rec[qtyIdx]
			}
			return stockResult(raw), nil
		}
	}
	return dtos.StockResult{}, nil
}

// MissingColumns lists configured columns that a header feed does not have
func MissingColumns(doc *dtos.FeedDocument, columns ...string) []string {
	var missing []string
	if !doc.HasHeader {
		for _, c := range columns {
			if _, err := columnIndex(c); err != nil {
				missing = append(missing, c)
			}
		}
		return missing
	}
	present := make(map[string]struct{}, len(doc.Header))
	for _, h := range doc.Header {
		present[h] = struct{}{}
	}
	for _, c := range columns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

func stockResult(raw string) dtos.StockResult {
	qty := ExtractQuantity(raw)
	return dtos.StockResult{Quantity: qty, Available: qty > 0, Found: true}
}

// ExtractQuantity keeps digits, '.' and '-', parses the rest as a number,
// truncates it and clamps it to zero. Anything unparseable is 0.
func ExtractQuantity(raw string) int {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

func columnIndex(col string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(col))
	if err != nil || idx < 0 {
		return 0, errors.Newf("column %q must be a zero-based index for feeds without a header", col)
	}
	return idx, nil
}
