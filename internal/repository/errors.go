// Package repository implements the durable stores behind the credential
// service, the request registry and the session manager on MySQL.
//
// Repositories return the sentinels below rather than driver errors for the
// two expected failure cases. Both wrap a model error kind, so callers may
// test either errors.Is(err, repository.ErrNotFound) or
// errors.Is(err, model.ErrNotFound).
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/kidcheck/internal/model"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = fmt.Errorf("record %w", model.ErrNotFound)

// ErrDuplicate is returned when an insert violates a unique key, e.g. a
// second user with the same email.
var ErrDuplicate = fmt.Errorf("duplicate key: %w", model.ErrConflict)

// mysqlDuplicateEntry is MySQL's ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// mysqlNoReferencedRow is ER_NO_REFERENCED_ROW_2 (foreign key violation on insert).
const mysqlNoReferencedRow = 1452

func isForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlNoReferencedRow
}
