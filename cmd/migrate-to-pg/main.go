package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Target schema, applied before copying. Mirrors the embedded SQLite
// migrations with PostgreSQL types.
const pgSchema = `
CREATE TABLE IF NOT EXISTS rooms (
    id TEXT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    image_url TEXT NOT NULL DEFAULT '',
    source_kind TEXT NOT NULL CHECK(source_kind IN ('link', 'torrent')),
    source_data TEXT NOT NULL,
    last_file_ind INTEGER NOT NULL DEFAULT 0,
    last_watch_ts DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
    id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

func main() {
	sqlitePath := flag.String("sqlite-path", "", "Path to SQLite database file")
	pgURL := flag.String("pg-url", "", "PostgreSQL connection URL")
	flag.Parse()

	if *sqlitePath == "" || *pgURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: migrate-to-pg --sqlite-path /path/to/cooplook.db --pg-url postgres://...\n")
		os.Exit(1)
	}

	// Open SQLite
	sqliteDB, err := sql.Open("sqlite", *sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteDB.Close()

	// Verify SQLite is accessible
	if err := sqliteDB.Ping(); err != nil {
		log.Fatalf("Failed to ping SQLite: %v", err)
	}
	log.Println("Connected to SQLite")

	// Open PostgreSQL
	pgDB, err := sql.Open("pgx", *pgURL)
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL: %v", err)
	}
	defer pgDB.Close()

	if err := pgDB.Ping(); err != nil {
		log.Fatalf("Failed to ping PostgreSQL: %v", err)
	}
	log.Println("Connected to PostgreSQL")

	if _, err := pgDB.Exec(pgSchema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	log.Println("Applied target schema")

	// Start transaction
	tx, err := pgDB.Begin()
	if err != nil {
		log.Fatalf("Failed to start transaction: %v", err)
	}
	defer tx.Rollback()

	// Truncate target tables for idempotent re-runs
	for _, table := range []string{"rooms", "users"} {
		if _, err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			log.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}
	log.Println("Truncated target tables")

	tables := []struct {
		name    string
		columns string
	}{
		{"rooms", "id, name, image_url, source_kind, source_data, last_file_ind, last_watch_ts, created_at"},
		{"users", "id, name, password_hash, created_at"},
	}

	for _, table := range tables {
		count, err := migrateTable(sqliteDB, tx, table.name, table.columns)
		if err != nil {
			log.Fatalf("Failed to migrate table %s: %v", table.name, err)
		}
		log.Printf("Migrated %s: %d rows", table.name, count)
	}

	// Line the users identity sequence up with the copied ids
	if _, err := tx.Exec(
		"SELECT setval(pg_get_serial_sequence('users', 'id'), COALESCE((SELECT MAX(id) FROM users), 1), (SELECT COUNT(*) > 0 FROM users))",
	); err != nil {
		log.Fatalf("Failed to reset users sequence: %v", err)
	}
	log.Println("Reset users sequence")

	// Verify row counts
	log.Println("Verifying row counts...")
	for _, table := range tables {
		var sqliteCount, pgCount int64

		err := sqliteDB.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table.name)).Scan(&sqliteCount)
		if err != nil {
			log.Fatalf("Failed to count SQLite rows for %s: %v", table.name, err)
		}

		err = tx.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table.name)).Scan(&pgCount)
		if err != nil {
			log.Fatalf("Failed to count PG rows for %s: %v", table.name, err)
		}

		if sqliteCount != pgCount {
			log.Fatalf("Row count mismatch for %s: SQLite=%d, PG=%d", table.name, sqliteCount, pgCount)
		}
		log.Printf("Verified %s: %d rows match", table.name, sqliteCount)
	}

	// Commit
	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %v", err)
	}

	log.Println("Migration completed successfully!")
}

func migrateTable(sqliteDB *sql.DB, tx *sql.Tx, tableName, columns string) (int64, error) {
	// Older databases may predate the users table
	var tableExists int
	err := sqliteDB.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
		tableName,
	).Scan(&tableExists)
	if err != nil {
		return 0, fmt.Errorf("failed to check table existence: %w", err)
	}
	if tableExists == 0 {
		log.Printf("Table %s does not exist in SQLite, skipping", tableName)
		return 0, nil
	}

	// Read from SQLite
	rows, err := sqliteDB.Query(fmt.Sprintf("SELECT %s FROM %s", columns, tableName))
	if err != nil {
		return 0, fmt.Errorf("failed to query SQLite: %w", err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("failed to get columns: %w", err)
	}

	// Build INSERT statement with numbered placeholders
	placeholders := make([]string, len(colNames))
	for i := range colNames {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		tableName, columns, strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var count int64
	for rows.Next() {
		values := make([]interface{}, len(colNames))
		valuePtrs := make([]interface{}, len(colNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return 0, fmt.Errorf("failed to scan row: %w", err)
		}

		if _, err := stmt.Exec(values...); err != nil {
			return 0, fmt.Errorf("failed to insert row: %w", err)
		}
		count++
	}

	return count, rows.Err()
}
