package repository

import (
	"context"
	"stationery-storefront/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	Get(ctx context.Context, uid string) (*model.UserProfile, error)
	// Upsert writes only the named columns when the profile already exists.
	Upsert(ctx context.Context, profile *model.UserProfile, columns []string) error
}

type userRepoImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepoImpl{db: db}
}

func (r *userRepoImpl) Get(ctx context.Context, uid string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.WithContext(ctx).
		Where("uid = ?", uid).
		First(&profile).Error

	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *userRepoImpl) Upsert(ctx context.Context, profile *model.UserProfile, columns []string) error {
	profile.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns(append(columns[:len(columns):len(columns)], "updated_at")),
	}).Create(profile).Error
}
