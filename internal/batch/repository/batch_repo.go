package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	"github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"gorm.io/gorm"
)

type batchRepo struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) domain.Repository {
	return &batchRepo{
		db: db,
	}
}

func (r *batchRepo) Insert(ctx context.Context, db *gorm.DB, batch *domain.Batch) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(batch).Error
}

func (r *batchRepo) UpdateStatusCAS(ctx context.Context, db *gorm.DB, batch *domain.Batch, from domain.BatchStatus) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.WithContext(ctx).
		Model(&domain.Batch{}).
		Where("id = ? AND status = ?", batch.ID, from).
		Updates(map[string]any{
			"status":        batch.Status,
			"provider":      batch.Provider,
			"error_message": batch.ErrorMessage,
			"summary":       batch.Summary,
			"processed_at":  batch.ProcessedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *batchRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Batch, error) {
	if db == nil {
		db = r.db
	}
	var batch domain.Batch
	if err := db.WithContext(ctx).First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepo) ListPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Batch, int64, error) {
	if db == nil {
		db = r.db
	}
	var total int64
	if err := db.WithContext(ctx).Model(&domain.Batch{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var batches []domain.Batch
	err := db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&batches).Error
	return batches, total, err
}

func (r *batchRepo) ListCompletedPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Batch, error) {
	if db == nil {
		db = r.db
	}
	var batches []domain.Batch
	err := db.WithContext(ctx).
		Where("status = ?", domain.BatchCompleted).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&batches).Error
	return batches, err
}

func (r *batchRepo) InsertLineItems(ctx context.Context, db *gorm.DB, items []auditdomain.LineItem) error {
	if db == nil {
		db = r.db
	}
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(items, 500).Error
}

func (r *batchRepo) InsertDiscrepancies(ctx context.Context, db *gorm.DB, discrepancies []auditdomain.Discrepancy) error {
	if db == nil {
		db = r.db
	}
	if len(discrepancies) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(discrepancies, 500).Error
}

func (r *batchRepo) ListDiscrepancies(ctx context.Context, db *gorm.DB, batchID snowflake.ID, filter domain.DiscrepancyFilter) ([]auditdomain.Discrepancy, error) {
	if db == nil {
		db = r.db
	}
	q := db.WithContext(ctx).Where("batch_id = ?", batchID)
	if filter.CheckType != "" {
		q = q.Where("check_type = ?", filter.CheckType)
	}
	if filter.Severity != "" {
		q = q.Where("severity = ?", filter.Severity)
	}
	if filter.DisputeStatus != "" {
		q = q.Where("dispute_status = ?", filter.DisputeStatus)
	}
	var discrepancies []auditdomain.Discrepancy
	err := q.Order("id ASC").Find(&discrepancies).Error
	return discrepancies, err
}
