package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"yoco/stocksync/internal/constants"
)

// InitCatalog connects to the commerce catalog database, retrying while it starts up
func InitCatalog(driver, dsn string, retries int) (*sqlx.DB, error) {
	driverName := driver
	if driver == "sqlite" {
		driverName = "sqlite3"
	}
	if retries < 1 {
		retries = 1
	}

	var err error
	var conn *sqlx.DB
	for i := 0; i < retries; i++ {
		conn, err = sqlx.Connect(driverName, dsn)
		if err == nil {
			if driver == "sqlite" {
				conn.SetMaxOpenConns(1)
			}
			return conn, nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("failed to connect to catalog: %w", err)
}

// CreateCatalogSchema creates the catalog tables when they do not exist
func CreateCatalogSchema(ctx context.Context, conn *sqlx.DB) error {
	for _, stmt := range constants.CatalogSchema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create catalog schema: %w", err)
		}
	}
	return nil
}
