package db

import (
	"database/sql"
	"fmt"
	"log"

	"FreeFM/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// CloseDB closes the raw connection if it was opened.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}

// InitDB initializes the importer schema, creating tables if they don't exist.
// Column shapes must stay in sync with model.TrackRecord / model.CursorDoc;
// AutoMigrateModels covers incremental changes for deployments using GORM.
func InitDB() error {
	if err := createTracksTable(); err != nil {
		return err
	}
	if err := createImportCursorsTable(); err != nil {
		return err
	}
	log.Println("Database initialization completed.")
	return nil
}

func createTracksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id VARCHAR(128) NOT NULL PRIMARY KEY,
		title VARCHAR(512) NOT NULL,
		artist VARCHAR(512),
		artist_id VARCHAR(255),
		album VARCHAR(512),
		album_id VARCHAR(255),
		duration INT DEFAULT 0,
		artwork VARCHAR(1024),
		audio_url VARCHAR(1024) NOT NULL,
		is_local BOOLEAN DEFAULT FALSE,
		genre VARCHAR(100),
		license VARCHAR(255),
		uploaded_by VARCHAR(100),
		uploaded_by_name VARCHAR(255),
		title_lower VARCHAR(512),
		original_audio_url VARCHAR(1024),
		original_artwork VARCHAR(1024),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_tracks_uploaded_by (uploaded_by),
		INDEX idx_tracks_title_lower (title_lower)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	log.Println("Tracks table initialized successfully (or already exists).")
	return nil
}

func createImportCursorsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS import_cursors (
		source VARCHAR(100) NOT NULL PRIMARY KEY,
		payload TEXT,
		updated_at BIGINT
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create import_cursors table: %w", err)
	}
	log.Println("Import cursors table initialized successfully (or already exists).")
	return nil
}
