package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	"github.com/freightauditlabs/freightaudit/internal/dispute/domain"
	"gorm.io/gorm"
)

type disputeRepo struct {
	db *gorm.DB
}

func NewDisputeRepository(db *gorm.DB) domain.Repository {
	return &disputeRepo{
		db: db,
	}
}

func (r *disputeRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*auditdomain.Discrepancy, error) {
	if db == nil {
		db = r.db
	}
	var discrepancy auditdomain.Discrepancy
	if err := db.WithContext(ctx).First(&discrepancy, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &discrepancy, nil
}

func (r *disputeRepo) UpdateStatusCAS(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to auditdomain.DisputeStatus, notes *string, at time.Time) (bool, error) {
	if db == nil {
		db = r.db
	}
	updates := map[string]any{
		"dispute_status":     to,
		"dispute_updated_at": at,
	}
	if notes != nil {
		updates["dispute_notes"] = notes
	}
	res := db.WithContext(ctx).
		Model(&auditdomain.Discrepancy{}).
		Where("id = ? AND dispute_status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *disputeRepo) RaisePending(ctx context.Context, db *gorm.DB, batchID snowflake.ID, notes *string, at time.Time) (int64, error) {
	if db == nil {
		db = r.db
	}
	updates := map[string]any{
		"dispute_status":     auditdomain.DisputeRaised,
		"dispute_updated_at": at,
	}
	if notes != nil {
		updates["dispute_notes"] = notes
	}
	res := db.WithContext(ctx).
		Model(&auditdomain.Discrepancy{}).
		Where("batch_id = ? AND dispute_status = ?", batchID, auditdomain.DisputePending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *disputeRepo) ListByStatus(ctx context.Context, db *gorm.DB, status auditdomain.DisputeStatus, offset, limit int) ([]auditdomain.Discrepancy, error) {
	if db == nil {
		db = r.db
	}
	q := db.WithContext(ctx)
	if status != "" {
		q = q.Where("dispute_status = ?", status)
	}
	var discrepancies []auditdomain.Discrepancy
	err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&discrepancies).Error
	return discrepancies, err
}
