package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/freightauditlabs/freightaudit/internal/alert/domain"
	"gorm.io/gorm"
)

type alertRepo struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) domain.Repository {
	return &alertRepo{
		db: db,
	}
}

func (r *alertRepo) Insert(ctx context.Context, db *gorm.DB, alerts []domain.Alert) error {
	if db == nil {
		db = r.db
	}
	if len(alerts) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&alerts).Error
}

func (r *alertRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Alert, error) {
	if db == nil {
		db = r.db
	}
	var alert domain.Alert
	if err := db.WithContext(ctx).First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepo) List(ctx context.Context, db *gorm.DB, req domain.ListRequest) ([]domain.Alert, error) {
	if db == nil {
		db = r.db
	}
	q := db.WithContext(ctx)
	if req.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if req.BatchID != "" {
		batchID, err := snowflake.ParseString(req.BatchID)
		if err != nil {
			return nil, err
		}
		q = q.Where("batch_id = ?", batchID)
	}
	var alerts []domain.Alert
	err := q.Order("created_at DESC, id DESC").Find(&alerts).Error
	return alerts, err
}

func (r *alertRepo) MarkRead(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("id = ?", id).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *alertRepo) MarkAllRead(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("is_read = ?", false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
