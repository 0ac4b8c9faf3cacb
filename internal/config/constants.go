package config

const (
	// DefaultDatabasePath is the default path for the SQLite database
	DefaultDatabasePath = "./ivyscans.db"

	// DefaultAvatar is assigned to users that never uploaded one
	DefaultAvatar = "/assets/images/default-avatar.png"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)
