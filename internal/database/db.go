package database

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DriverName = "sqlite3"

const DefaultFile = "teamvault.db"

// NewDb opens the metadata database and migrates the schema. The DSN params
// are mattn/go-sqlite3 specific: foreign keys on for file_tags cleanup, busy
// timeout so concurrent writers back off instead of failing.
func NewDb(file string) (*gorm.DB, error) {
	conn, err := sql.Open(DriverName, file+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Dialector{
		DriverName: DriverName,
		DSN:        file,
		Conn:       conn,
	}, &gorm.Config{
		Logger:                   logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction:   true,
		DisableNestedTransaction: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&File{}, &Tag{}, &FileTag{}); err != nil {
		return nil, err
	}
	return db, nil
}
