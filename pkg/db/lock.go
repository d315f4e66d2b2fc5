package db

import "gorm.io/gorm"

// ForUpdate returns the row-lock suffix for the connected dialect.
// SQLite serializes writers on its own and rejects the clause.
func ForUpdate(tx *gorm.DB) string {
	if tx == nil || tx.Dialector == nil {
		return ""
	}
	if tx.Dialector.Name() == "sqlite" {
		return ""
	}
	return " FOR UPDATE"
}
