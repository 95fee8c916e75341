// Package storage provides persistence for the retention engine.
//
// SQLStore targets SQLite through either the mattn/go-sqlite3 ("sqlite3") or
// the pure Go modernc.org/sqlite ("sqlite") driver, and PostgreSQL through
// pgx ("pgx"). Queries are written once with ? placeholders and rebound per
// driver by sqlx. Schema changes are embedded golang-migrate migrations, one
// directory per database family.
//
// MemoryStore is a map-backed implementation for tests.
//
// Example:
//
//	store, err := storage.Open(&storage.Config{
//		Driver:      "sqlite3",
//		DSN:         "data/custodian.db",
//		WALMode:     true,
//		AutoMigrate: true,
//	})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
package storage
