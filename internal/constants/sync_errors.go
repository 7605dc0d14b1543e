package constants

// Sync error codes, stored on failed log records and returned by the API

// Configuration errors
const (
	ErrCodeConfigNotFound       = "CONFIG_NOT_FOUND"
	ErrCodeConfigNotActive      = "CONFIG_NOT_ACTIVE"
	ErrCodeNoFeedSource         = "NO_FEED_SOURCE"
	ErrCodeColumnsNotConfigured = "COLUMNS_NOT_CONFIGURED"
	ErrCodeInvalidDelimiter     = "INVALID_DELIMITER"
	ErrCodeUnsupportedEncoding  = "UNSUPPORTED_ENCODING"
)

// Fetch errors
const (
	ErrCodeFetchTimeout    = "FETCH_TIMEOUT"
	ErrCodeFetchNetwork    = "FETCH_NETWORK"
	ErrCodeFetchEmpty      = "FETCH_EMPTY"
	ErrCodeFetchStatus     = "FETCH_STATUS"
	ErrCodeFTPConnect      = "FTP_CONNECT_FAILED"
	ErrCodeFTPLogin        = "FTP_LOGIN_FAILED"
	ErrCodeFTPDownload     = "FTP_DOWNLOAD_FAILED"
	ErrCodeFTPFileNotFound = "FTP_FILE_NOT_FOUND"
)

// Parse, entry and store errors
const (
	ErrCodeParseEmpty      = "PARSE_EMPTY"
	ErrCodeParseMalformed  = "PARSE_MALFORMED"
	ErrCodeColumnMissing   = "COLUMN_MISSING"
	ErrCodeEntryNoIdentity = "ENTRY_NO_IDENTITY"
	ErrCodeEntryFailed     = "ENTRY_FAILED"
	ErrCodeStoreFailed     = "STORE_FAILED"
	ErrCodeAlreadyRunning  = "ALREADY_RUNNING"
	ErrCodeCancelled       = "SYNC_CANCELLED"
)

// Fetch failure reasons
const (
	FetchReasonTimeout = "timeout"
	FetchReasonNetwork = "network"
	FetchReasonEmpty   = "empty"
	FetchReasonStatus  = "status"
)

// FTP steps named by fetch errors
const (
	FTPStepConnect  = "connect"
	FTPStepLogin    = "login"
	FTPStepDownload = "download"
	FTPStepRead     = "read"
)

// SyncErrorMessages maps error codes to operator facing messages
var SyncErrorMessages = map[string]string{
	ErrCodeConfigNotFound:       "Supplier configuration not found",
	ErrCodeConfigNotActive:      "Supplier configuration is not active",
	ErrCodeNoFeedSource:         "Neither feed URL nor complete FTP settings are configured",
	ErrCodeColumnsNotConfigured: "Match column or stock column not configured",
	ErrCodeInvalidDelimiter:     "Delimiter must be a single character",
	ErrCodeUnsupportedEncoding:  "Feed encoding is not supported",

	ErrCodeFetchTimeout:    "Feed download timed out",
	ErrCodeFetchNetwork:    "Feed download failed",
	ErrCodeFetchEmpty:      "Feed is empty",
	ErrCodeFetchStatus:     "Feed server returned an error status",
	ErrCodeFTPConnect:      "Could not connect to FTP server",
	ErrCodeFTPLogin:        "FTP login failed",
	ErrCodeFTPDownload:     "Could not download file from FTP server",
	ErrCodeFTPFileNotFound: "File not found",

	ErrCodeParseEmpty:      "Feed contains no data rows",
	ErrCodeParseMalformed:  "Feed could not be parsed",
	ErrCodeColumnMissing:   "Configured column not found in feed header",
	ErrCodeEntryNoIdentity: "No SKU or EAN for matching",
	ErrCodeEntryFailed:     "Entry could not be processed",
	ErrCodeStoreFailed:     "Stock could not be stored",
	ErrCodeAlreadyRunning:  "Already running",
	ErrCodeCancelled:       "Sync cancelled",
}

// GetSyncErrorMessage returns the message for code, or code itself when unknown
func GetSyncErrorMessage(code string) string {
	if msg, ok := SyncErrorMessages[code]; ok {
		return msg
	}
	return code
}
