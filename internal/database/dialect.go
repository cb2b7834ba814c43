package database

// Supported DB_DRIVER values.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Dialect captures the few statements that differ between the
// production store and the embedded one.
type Dialect struct {
	Name string
	// InsertIgnore prefixes an INSERT whose duplicate-key conflicts
	// should be skipped instead of failing.
	InsertIgnore string
	// ForUpdate is appended to a SELECT to take exclusive row locks.
	// Empty where the store has no row locks.
	ForUpdate string
}

var (
	MySQL  = Dialect{Name: DriverMySQL, InsertIgnore: "INSERT IGNORE INTO", ForUpdate: " FOR UPDATE"}
	SQLite = Dialect{Name: DriverSQLite, InsertIgnore: "INSERT OR IGNORE INTO", ForUpdate: ""}
)

// SupportsRowLocks reports whether ForUpdate actually locks anything.
func (d Dialect) SupportsRowLocks() bool { return d.ForUpdate != "" }
