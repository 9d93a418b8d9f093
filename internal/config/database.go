package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database.
// References between tables are maintained by the application, so there are
// no foreign keys; embedded sub-records live in JSONB columns.
func createTables(db *sqlx.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			phone VARCHAR(50) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'Client',
			project_ids TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS projects (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			location VARCHAR(255) NOT NULL,
			cost VARCHAR(100) NOT NULL,
			start_date TIMESTAMP NOT NULL,
			deadline TIMESTAMP NOT NULL,
			land_area VARCHAR(100) NOT NULL,
			construction_type VARCHAR(255) NOT NULL,
			divisions TEXT[] NOT NULL DEFAULT '{}',
			client_id VARCHAR(36) NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'ongoing',
			progress_update_ids TEXT[] NOT NULL DEFAULT '{}',
			material_ids TEXT[] NOT NULL DEFAULT '{}',
			labor_ids TEXT[] NOT NULL DEFAULT '{}',
			total_labor_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_material_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			grand_project_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS labor_records (
			id VARCHAR(36) PRIMARY KEY,
			project_id VARCHAR(36) NOT NULL,
			labor_type VARCHAR(255) NOT NULL,
			number_of_workers INTEGER NOT NULL CHECK (number_of_workers >= 1),
			date TIMESTAMP NOT NULL,
			rate DOUBLE PRECISION NOT NULL CHECK (rate >= 0),
			description TEXT NOT NULL,
			total_wage DOUBLE PRECISION NOT NULL CHECK (total_wage >= 0),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS materials (
			id VARCHAR(36) PRIMARY KEY,
			project_id VARCHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL,
			usage_info JSONB NOT NULL DEFAULT '[]',
			purchase_info JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (project_id, name)
		)`,

		`CREATE TABLE IF NOT EXISTS progress_updates (
			id VARCHAR(36) PRIMARY KEY,
			project_id VARCHAR(36) NOT NULL,
			division VARCHAR(255) NOT NULL,
			progress INTEGER NOT NULL CHECK (progress >= 0 AND progress <= 100),
			media JSONB NOT NULL DEFAULT '[]',
			description TEXT NOT NULL DEFAULT '',
			date_updated TIMESTAMP NOT NULL,
			messages JSONB NOT NULL DEFAULT '[]',
			viewed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS client_requests (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone_no VARCHAR(50) NOT NULL DEFAULT '',
			project_type VARCHAR(255) NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return err
		}
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_projects_client_id ON projects(client_id)",
		"CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status)",
		"CREATE INDEX IF NOT EXISTS idx_labor_records_project_id ON labor_records(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_materials_project_id ON materials(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_progress_updates_project_id ON progress_updates(project_id)",
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
