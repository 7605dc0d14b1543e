package constants

import (
	"database/sql/driver"
	"fmt"
)

// APIRole is carried in the "role" claim of admin tokens
type APIRole string

const (
	RoleOperator APIRole = "operator"
	RoleAdmin    APIRole = "admin"
)

// Stringer ­– convenient for fmt / logs
func (r APIRole) String() string { return string(r) }

// Allows reports whether r satisfies a route that requires min
func (r APIRole) Allows(min APIRole) bool {
	switch min {
	case RoleOperator:
		return r == RoleOperator || r == RoleAdmin
	case RoleAdmin:
		return r == RoleAdmin
	}
	return false
}

/* ---------- DB adapters so sqlx (or database/sql) scans/values catalog enums cleanly ---------- */

// Scan implements the sql.Scanner interface
func (s *StockStatus) Scan(src interface{}) error {
	v, err := scanString("StockStatus", src)
	if err != nil {
		return err
	}
	*s = StockStatus(v)
	return nil
}

// Value implements the driver.Valuer interface
func (s StockStatus) Value() (driver.Value, error) { return string(s), nil }

// Scan implements the sql.Scanner interface
func (b *BackorderMode) Scan(src interface{}) error {
	v, err := scanString("BackorderMode", src)
	if err != nil {
		return err
	}
	*b = BackorderMode(v)
	return nil
}

// Value implements the driver.Valuer interface
func (b BackorderMode) Value() (driver.Value, error) { return string(b), nil }

// Scan implements the sql.Scanner interface
func (k *EntryKind) Scan(src interface{}) error {
	v, err := scanString("EntryKind", src)
	if err != nil {
		return err
	}
	*k = EntryKind(v)
	return nil
}

// Value implements the driver.Valuer interface
func (k EntryKind) Value() (driver.Value, error) { return string(k), nil }

func scanString(name string, src interface{}) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("%s: cannot scan type %T", name, src)
	}
}
