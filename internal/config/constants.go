package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./bookverse.db"
)

// Storage backends
const (
	StorageBackendDatabase = "database"
	StorageBackendMinio    = "minio"
)

// MinPBKDF2Iterations is the floor for the password key-derivation work factor.
const MinPBKDF2Iterations = 100_000
