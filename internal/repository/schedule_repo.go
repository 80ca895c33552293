package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// ScheduleRepository 课表文档数据访问接口
type ScheduleRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.ScheduleDocument, error)
	// Upsert 整体覆盖用户的课表文档（后写者胜出），doc.UpdatedAt 被设置为写入时间
	Upsert(ctx context.Context, doc *model.ScheduleDocument) error
}

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) GetByUserID(ctx context.Context, userID string) (*model.ScheduleDocument, error) {
	var doc model.ScheduleDocument
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *scheduleRepo) Upsert(ctx context.Context, doc *model.ScheduleDocument) error {
	doc.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(doc).Error
}
