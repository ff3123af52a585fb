package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/boxlens/boxlens-go/internal/errors"
)

// migratedModels lists every table the store owns, in creation order.
var migratedModels = []any{
	&Project{},
	&Capture{},
	&InventoryItem{},
	&SpreadsheetProjection{},
	&SpreadsheetRow{},
}

// performAutoMigration creates or updates the schema for all store
// tables.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	start := time.Now()
	migrationLogger := getLogger().With("db_type", dbType)

	migrationLogger.Debug("Starting database migration")

	if err := db.AutoMigrate(migratedModels...); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migration").
			Context("db_type", dbType).
			Build()
	}

	if debug {
		migrationLogger.Debug("Database migration completed",
			"connection", connectionInfo,
			"duration", time.Since(start),
			"tables", len(migratedModels))
	}
	return nil
}
