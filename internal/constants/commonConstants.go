package constants

type (
	ConnectionMode string
	MatchField     string
	StockStatus    string
	BackorderMode  string
	EntryKind      string
	CachePrefix    string
	APIStatus      string
)

const (
	ConnectionURL ConnectionMode = "url"
	ConnectionFTP ConnectionMode = "ftp"

	MatchOnSKU MatchField = "sku"
	MatchOnEAN MatchField = "ean"

	StockInStock     StockStatus = "instock"
	StockOutOfStock  StockStatus = "outofstock"
	StockOnBackorder StockStatus = "onbackorder"

	BackordersNo     BackorderMode = "no"
	BackordersNotify BackorderMode = "notify"

	EntrySimple    EntryKind = "simple"
	EntryVariable  EntryKind = "variable"
	EntryVariation EntryKind = "variation"

	CachePrefixFeed    CachePrefix = "yoco_feed_"
	CachePrefixFTPFeed CachePrefix = "yoco_ftp_feed_"
	// CachePrefixAll matches every feed key of both kinds
	CachePrefixAll CachePrefix = "yoco_"

	APIStatusOk    APIStatus = "success"
	APIStatusError APIStatus = "error"
)

// Lease keys
const (
	LeaseKeySupplierPrefix = "yoco:sync:supplier:"
	LeaseKeyBatch          = "yoco:sync:all"
)

// Defaults carried over from the supplier settings screen
const (
	DefaultFTPPort          = 21
	DefaultDelimiter        = ","
	DefaultEncoding         = "utf-8"
	DefaultFallbackDelivery = "Voor 17:00 uur besteld, dezelfde werkdag nog verzonden"
	DefaultUserAgent        = "YoCo-Backorder-Sync/2.0 (+stock feed importer)"
	SampleRowCount          = 3
)

// Schedule frequencies in days
const (
	FrequencyDaily  = 1
	FrequencyWeekly = 7
)
