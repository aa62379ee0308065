// Package migration creates and upgrades the engine's schema.
package migration

import (
	alertdomain "github.com/freightauditlabs/freightaudit/internal/alert/domain"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run migrates every table the engine owns. Safe to run repeatedly.
func Run(db *gorm.DB, log *zap.Logger) error {
	log.Info("running migrations")
	if err := db.AutoMigrate(
		&batchdomain.Batch{},
		&auditdomain.LineItem{},
		&auditdomain.Discrepancy{},
		&alertdomain.Alert{},
	); err != nil {
		return err
	}
	log.Info("migrations complete")
	return nil
}
