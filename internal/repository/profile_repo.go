package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// ProfileRepository 用户档案数据访问接口
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	// FirstOrCreate 档案不存在时插入 profile；并发创建时以先写入者为准
	FirstOrCreate(ctx context.Context, profile *model.Profile) (*model.Profile, error)
	List(ctx context.Context) ([]model.Profile, error)
}

type profileRepo struct {
	db *gorm.DB
}

// NewProfileRepo 创建 ProfileRepository 实例
func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) FirstOrCreate(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(profile).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}
	return r.GetByUserID(ctx, profile.UserID)
}

func (r *profileRepo) List(ctx context.Context) ([]model.Profile, error) {
	var list []model.Profile
	err := r.db.WithContext(ctx).
		Order("username ASC").
		Find(&list).Error
	return list, err
}
