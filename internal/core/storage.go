package core

import (
	"fmt"
	"os"

	"vetcalc/internal/infra/persistence/memory"
	"vetcalc/internal/infra/persistence/postgres"
	"vetcalc/internal/infra/persistence/sqlite"
	"vetcalc/pkg/domain"
)

// StorageDriver identifies a concrete history storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenHistoryStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	VETCALC_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	VETCALC_SQLITE_PATH: path to sqlite file (default ./vetcalc.db)
//	VETCALC_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenHistoryStore() (domain.HistoryStore, error) {
	driver := os.Getenv("VETCALC_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("VETCALC_SQLITE_PATH"))
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("VETCALC_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
