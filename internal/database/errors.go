package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
	mysqlCheckViolated   = 3819
)

// IsDuplicateKey reports a unique-constraint violation.
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsLockTimeout reports that the store gave up waiting for a row lock
// or broke a deadlock by aborting this transaction.
func IsLockTimeout(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlLockWaitTimeout || me.Number == mysqlDeadlock
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// IsCheckViolation reports a CHECK constraint failure.
func IsCheckViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlCheckViolated
	}
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}
