package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver cho database/sql
)

var (
	// ErrNotFound được trả về khi không có bản ghi nào khớp
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail được trả về khi email đã tồn tại
	ErrDuplicateEmail = errors.New("email already exists")
)

// OpenPostgreSQL mở kết nối tới PostgreSQL và tạo bảng nếu chưa tồn tại
func OpenPostgreSQL(ctx context.Context, uri string) (*sql.DB, error) {
	if uri == "" {
		return nil, errors.New("you must set your 'POSTGRESQL_URI' environmental variable")
	}

	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot connect to PostgreSQL: %w", err)
	}

	log.Println("Connected to PostgreSQL successfully")

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables tạo bảng users và tasks nếu chưa tồn tại
func createTables(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name VARCHAR(50) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password TEXT NOT NULL,
		role VARCHAR(10) NOT NULL DEFAULT 'user',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY,
		title VARCHAR(100) NOT NULL,
		description VARCHAR(500) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		priority VARCHAR(10) NOT NULL DEFAULT 'medium',
		user_id UUID NOT NULL REFERENCES users(id),
		due_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS tasks_user_status_idx ON tasks (user_id, status)
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return err
	}

	log.Println("Tables created or already exist")
	return nil
}

// ClosePostgreSQL đóng kết nối với PostgreSQL
func ClosePostgreSQL(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Printf("failed to close database: %v", err)
		return
	}
	log.Println("Database connection closed")
}
