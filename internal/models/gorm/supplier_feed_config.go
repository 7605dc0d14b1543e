package gorm

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"yoco/stocksync/internal/constants"
)

// SupplierFeedConfig holds the feed settings of one supplier. ID is the supplier id.
type SupplierFeedConfig struct {
	ID                  int64     `gorm:"column:id;primaryKey;autoIncrement:false" yaml:"id"`
	Name                string    `gorm:"column:name;type:varchar(200);not null" yaml:"name"`
	ConnectionType      string    `gorm:"column:connection_type;type:varchar(10);not null" yaml:"connection_type"`
	FeedURL             string    `gorm:"column:feed_url;type:text" yaml:"feed_url"`
	FTPHost             string    `gorm:"column:ftp_host;type:varchar(255)" yaml:"ftp_host"`
	FTPPort             int       `gorm:"column:ftp_port" yaml:"ftp_port"`
	FTPUser             string    `gorm:"column:ftp_user;type:varchar(255)" yaml:"ftp_user"`
	FTPPassword         string    `gorm:"column:ftp_password;type:varchar(255)" yaml:"ftp_password"`
	FTPPath             string    `gorm:"column:ftp_path;type:text" yaml:"ftp_path"`
	FTPPassive          bool      `gorm:"column:ftp_passive" yaml:"ftp_passive"`
	Delimiter           string    `gorm:"column:csv_delimiter;type:varchar(5)" yaml:"delimiter"`
	HasHeader           bool      `gorm:"column:csv_has_header" yaml:"has_header"`
	Encoding            string    `gorm:"column:encoding;type:varchar(20)" yaml:"encoding"`
	MatchOn             string    `gorm:"column:match_on;type:varchar(10)" yaml:"match_on"`
	MatchColumn         string    `gorm:"column:sku_column;type:varchar(100)" yaml:"match_column"`
	StockColumn         string    `gorm:"column:stock_column;type:varchar(100)" yaml:"stock_column"`
	DefaultDeliveryTime string    `gorm:"column:default_delivery_time;type:text" yaml:"default_delivery_time"`
	IsActive            bool      `gorm:"column:is_active;index" yaml:"is_active"`
	UpdateFrequency     int       `gorm:"column:update_frequency" yaml:"update_frequency"`
	UpdateTimes         []string  `gorm:"column:update_times;serializer:json" yaml:"update_times"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime" yaml:"-"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime" yaml:"-"`
}

// TableName specifies the table name for GORM
func (SupplierFeedConfig) TableName() string {
	return "supplier_feed_configs"
}

// NewSupplierFeedConfig returns a config carrying the settings screen defaults
func NewSupplierFeedConfig(id int64, name string) *SupplierFeedConfig {
	return &SupplierFeedConfig{
		ID:              id,
		Name:            name,
		ConnectionType:  string(constants.ConnectionURL),
		FTPPort:         constants.DefaultFTPPort,
		FTPPassive:      true,
		Delimiter:       constants.DefaultDelimiter,
		HasHeader:       true,
		Encoding:        constants.DefaultEncoding,
		MatchOn:         string(constants.MatchOnSKU),
		IsActive:        true,
		UpdateFrequency: constants.FrequencyDaily,
	}
}

// Mode returns the connection mode, inferring it from the filled fields when unset
func (c *SupplierFeedConfig) Mode() constants.ConnectionMode {
	switch constants.ConnectionMode(c.ConnectionType) {
	case constants.ConnectionFTP:
		return constants.ConnectionFTP
	case constants.ConnectionURL:
		return constants.ConnectionURL
	}
	if c.FeedURL == "" && c.FTPHost != "" {
		return constants.ConnectionFTP
	}
	return constants.ConnectionURL
}

// Usable reports whether the selected connection mode is fully configured
func (c *SupplierFeedConfig) Usable() bool {
	if c.Mode() == constants.ConnectionFTP {
		return c.FTPHost != "" && c.FTPUser != "" && c.FTPPassword != "" && c.FTPPath != ""
	}
	return strings.TrimSpace(c.FeedURL) != ""
}

// ColumnsConfigured reports whether both match and stock columns are set
func (c *SupplierFeedConfig) ColumnsConfigured() bool {
	return strings.TrimSpace(c.MatchColumn) != "" && strings.TrimSpace(c.StockColumn) != ""
}

// MatchField returns the identity field rows are compared against
func (c *SupplierFeedConfig) MatchField() constants.MatchField {
	if constants.MatchField(c.MatchOn) == constants.MatchOnEAN {
		return constants.MatchOnEAN
	}
	return constants.MatchOnSKU
}

// DelimiterRune resolves the configured delimiter. "\t" and "tab" mean a tab.
func (c *SupplierFeedConfig) DelimiterRune() (rune, error) {
	d := c.Delimiter
	switch strings.ToLower(d) {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, fmt.Errorf("delimiter %q is not a single character", d)
	}
	r, _ := utf8.DecodeRuneInString(d)
	return r, nil
}

// Port returns the FTP port, defaulting to 21
func (c *SupplierFeedConfig) Port() int {
	if c.FTPPort <= 0 {
		return constants.DefaultFTPPort
	}
	return c.FTPPort
}

// FTPAddr returns host:port for the control connection
func (c *SupplierFeedConfig) FTPAddr() string {
	return fmt.Sprintf("%s:%d", c.FTPHost, c.Port())
}

// Source describes the feed location without credentials
func (c *SupplierFeedConfig) Source() string {
	if c.Mode() == constants.ConnectionFTP {
		return fmt.Sprintf("ftp://%s%s", c.FTPAddr(), c.FTPPath)
	}
	return c.FeedURL
}

// CacheKey is the feed cache fingerprint: the URL, or host plus remote path
func (c *SupplierFeedConfig) CacheKey() string {
	if c.Mode() == constants.ConnectionFTP {
		sum := md5.Sum([]byte(c.FTPHost + c.FTPPath))
		return string(constants.CachePrefixFTPFeed) + hex.EncodeToString(sum[:])
	}
	sum := md5.Sum([]byte(c.FeedURL))
	return string(constants.CachePrefixFeed) + hex.EncodeToString(sum[:])
}

// ScheduleFingerprint changes whenever the schedule settings change
func (c *SupplierFeedConfig) ScheduleFingerprint() string {
	return fmt.Sprintf("%d|%s", c.UpdateFrequency, strings.Join(c.UpdateTimes, ","))
}
