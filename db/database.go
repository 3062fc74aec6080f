package db

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"WaveSplit/config"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the global GORM handle over the local sqlite store.
var DB *gorm.DB

// KVRecord is a single durable record holding a serialized payload under a
// fixed namespace. The project store keeps its whole project sequence in
// one such record and rewrites it on every mutation.
type KVRecord struct {
	Namespace string `gorm:"primaryKey;type:varchar(64)"`
	Payload   []byte
	UpdatedAt time.Time
}

// Open opens a sqlite database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := gdb.AutoMigrate(&KVRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return gdb, nil
}

// ConnectDB opens the configured sqlite database into the global handle.
func ConnectDB(cfg *config.Config) error {
	gdb, err := Open(cfg.DBPath)
	if err != nil {
		return err
	}
	DB = gdb
	log.Println("Successfully connected to the database.")
	return nil
}

// CloseDB closes the underlying connection.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
