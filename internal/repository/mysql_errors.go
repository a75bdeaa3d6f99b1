package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// isDuplicateKey reports a unique-constraint violation, optionally
// narrowed to an index whose name contains key.
func isDuplicateKey(err error, key string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlErrDuplicateEntry {
		return false
	}
	return key == "" || strings.Contains(strings.ToLower(me.Message), strings.ToLower(key))
}

// isRetryableTx reports errors after which InnoDB has rolled the whole
// transaction back and a fresh attempt may succeed.
func isRetryableTx(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout
}
