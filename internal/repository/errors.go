// Package repository implements the booking store contracts on MySQL.
// Errors that callers must branch on are translated into the booking
// package's sentinels; everything else is wrapped with the failing step.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repository reacts to.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errLockDeadlock    = 1213
)

func mysqlNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

// isLockConflict reports whether err means the transaction lost a lock
// race and may succeed if re-run.
func isLockConflict(err error) bool {
	n := mysqlNumber(err)
	return n == errLockDeadlock || n == errLockWaitTimeout
}

func isDuplicate(err error) bool { return mysqlNumber(err) == errDupEntry }
