package postgres

import (
	"gorm.io/gorm"

	"github.com/verisona-ai/analysis-service/internal/models"
)

// Reports are the only table this service owns. AutoMigrate cannot express
// a partial index, so the one-active-job-per-(session_id, type) constraint
// is created explicitly: failed rows stay behind as history while queued,
// processing, and completed rows stay unique.
const activeReportIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_reports_active_session_type
ON reports (session_id, type) WHERE status <> 'failed'`

// Migrate creates the report table and its partial uniqueness index.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Report{}); err != nil {
		return err
	}
	return db.Exec(activeReportIndex).Error
}
