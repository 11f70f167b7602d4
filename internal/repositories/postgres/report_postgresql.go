package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/verisona-ai/analysis-service/internal/models"
	"github.com/verisona-ai/analysis-service/internal/repositories"
)

type ReportPostgreSQL struct {
	db *gorm.DB
}

func NewReportPostgreSQL(db *gorm.DB) repositories.ReportRepository {
	return &ReportPostgreSQL{db: db}
}

// Create inserts a report. The partial unique index on (session_id, type)
// over non-failed rows makes concurrent duplicate inserts surface as
// ErrDuplicateReport even under READ COMMITTED.
func (r *ReportPostgreSQL) Create(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrDuplicateReport
		}
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *ReportPostgreSQL) GetByID(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&report).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportPostgreSQL) GetBySessionAndType(ctx context.Context, sessionID string, analysisType models.AnalysisType) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND type = ?", sessionID, analysisType).
		Order("created_at DESC").
		First(&report).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportPostgreSQL) Update(ctx context.Context, report *models.Report) error {
	report.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ?", report.ID).
		Updates(map[string]interface{}{
			"status":        report.Status,
			"title":         report.Title,
			"content":       report.Content,
			"summary":       report.Summary,
			"error_detail":  report.ErrorDetail,
			"options":       report.Options,
			"processing_ms": report.ProcessingMS,
			"completed_at":  report.CompletedAt,
			"updated_at":    report.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ReportPostgreSQL) ListBySessionIDs(ctx context.Context, sessionIDs []string) ([]*models.Report, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	var reports []*models.Report
	err := r.db.WithContext(ctx).
		Where("session_id IN ?", sessionIDs).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *ReportPostgreSQL) ListByUser(ctx context.Context, userID uint, filters repositories.ReportFilters) ([]*models.Report, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("user_id = ?", userID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.SessionID != nil {
		query = query.Where("session_id = ?", *filters.SessionID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters)

	var reports []*models.Report
	if err := query.Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func applyPaginationAndSort(query *gorm.DB, filters repositories.ReportFilters) *gorm.DB {
	sortBy := filters.SortBy
	if sortBy != "created_at" && sortBy != "completed_at" {
		sortBy = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		order = "ASC"
	}
	query = query.Order(sortBy + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}

// isUniqueViolation matches the postgres unique_violation error class.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
