package dtos

import "time"

// FeedDocument is a fetched and parsed supplier feed.
// Rows is filled for feeds with a header, Records for header-less feeds.
type FeedDocument struct {
	Header    []string            `json:"header,omitempty"`
	Rows      []map[string]string `json:"rows,omitempty"`
	Records   [][]string          `json:"records,omitempty"`
	HasHeader bool                `json:"has_header"`
	Delimiter string              `json:"delimiter"`
	Encoding  string              `json:"encoding"`
	Skipped   int                 `json:"skipped"`
	Source    string              `json:"source"`
	FetchedAt time.Time           `json:"fetched_at"`
	FromCache bool                `json:"-"`
}

// Len returns the number of accepted rows
func (d *FeedDocument) Len() int {
	if d.HasHeader {
		return len(d.Rows)
	}
	return len(d.Records)
}

// Identity is what a catalog entry is matched on
type Identity struct {
	SKU string
	EAN string
}

// Empty reports whether there is nothing to match on
func (i Identity) Empty() bool {
	return i.SKU == "" && i.EAN == ""
}

// StockResult is the outcome of looking an identity up in a feed.
// Found is diagnostic only; callers treat not found and zero stock alike.
type StockResult struct {
	Quantity  int  `json:"quantity"`
	Available bool `json:"available"`
	Found     bool `json:"-"`
}

// StockFact is the value written to the stock store
type StockFact struct {
	SKU      string
	EAN      string
	Quantity int
}

// FeedPreview is the test-feed report
type FeedPreview struct {
	SupplierID          int64      `json:"supplier_id"`
	Source              string     `json:"source"`
	Columns             []string   `json:"columns"`
	SampleRows          [][]string `json:"sample_rows"`
	RowCount            int        `json:"row_count"`
	Skipped             int        `json:"skipped"`
	ConfiguredDelimiter string     `json:"configured_delimiter"`
	DetectedDelimiter   string     `json:"detected_delimiter"`
	FileSize            int64      `json:"file_size,omitempty"`
}
