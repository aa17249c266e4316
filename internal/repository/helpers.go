package repository

import (
	"database/sql"
	"fmt"
)

// expectAffected maps a write that touched no row to sql.ErrNoRows so services
// can treat it like a failed lookup.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
