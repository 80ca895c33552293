package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sarigr/uni-schedule-cloud/internal/dto"
	"github.com/sarigr/uni-schedule-cloud/internal/grid"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
	"github.com/sarigr/uni-schedule-cloud/internal/normalize"
	"github.com/sarigr/uni-schedule-cloud/internal/repository"
)

// ErrInvalidDocument 请求体不是 JSON 对象
var ErrInvalidDocument = errors.New("课表文档格式无效")

// ScheduleService 云端课表文档业务接口
//
// 设计说明：
//   - 每个用户一份文档，保存即整体覆盖，后写者胜出，不做合并
//   - 写入前按与客户端相同的规则校验，非法记录与孤立排课被丢弃并计数
type ScheduleService interface {
	// Get 读取文档；用户从未保存过时 Payload 为 nil
	Get(ctx context.Context, userID string) (*dto.ScheduleResponse, error)
	// Save 校验并覆盖文档
	Save(ctx context.Context, userID string, raw []byte) (*dto.SaveScheduleResponse, error)
}

type scheduleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, logger: logger}
}

func (s *scheduleService) Get(ctx context.Context, userID string) (*dto.ScheduleResponse, error) {
	doc, err := s.repo.Schedule.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.ScheduleResponse{}, nil
		}
		s.logger.Error("查询课表文档失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	// 历史数据同样经过校验，避免把坏记录下发给客户端
	p, dropped, err := normalizePayload(doc.Payload)
	if err != nil {
		s.logger.Warn("课表文档已损坏，按空文档返回", zap.String("user_id", userID), zap.Error(err))
		return &dto.ScheduleResponse{UpdatedAt: formatTime(doc.UpdatedAt)}, nil
	}
	if dropped > 0 {
		s.logger.Warn("课表文档中存在非法记录", zap.String("user_id", userID), zap.Int("dropped", dropped))
	}
	return &dto.ScheduleResponse{Payload: &p, UpdatedAt: formatTime(doc.UpdatedAt)}, nil
}

func (s *scheduleService) Save(ctx context.Context, userID string, raw []byte) (*dto.SaveScheduleResponse, error) {
	p, dropped, err := normalizePayload(raw)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	doc := &model.ScheduleDocument{UserID: userID, Payload: datatypes.JSON(body)}
	if err := s.repo.Schedule.Upsert(ctx, doc); err != nil {
		s.logger.Error("保存课表文档失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("课表文档已保存",
		zap.String("user_id", userID),
		zap.Int("slots", len(p.Slots)),
		zap.Int("courses", len(p.Courses)),
		zap.Int("entries", len(p.Entries)),
		zap.Int("dropped", dropped),
	)
	return &dto.SaveScheduleResponse{UpdatedAt: formatTime(doc.UpdatedAt), Dropped: dropped}, nil
}

// rawPayload 集合保持原始 JSON，逐条交给 normalize 校验
type rawPayload struct {
	Slots      json.RawMessage `json:"slots"`
	Courses    json.RawMessage `json:"courses"`
	Entries    json.RawMessage `json:"entries"`
	Theme      string          `json:"theme"`
	ExportSkin string          `json:"exportSkin"`
}

// normalizePayload 校验不可信的文档 JSON
// 返回值 dropped 为被拒绝的记录数与孤立排课数之和
func normalizePayload(raw []byte) (model.Payload, int, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return model.Payload{}, 0, ErrInvalidDocument
	}
	var in rawPayload
	if err := json.Unmarshal(raw, &in); err != nil {
		return model.Payload{}, 0, ErrInvalidDocument
	}

	slots := normalize.Slots(in.Slots)
	courses := normalize.Courses(in.Courses)
	entries := normalize.Entries(in.Entries)
	kept, orphans := grid.DropOrphans(slots.Valid, courses.Valid, entries.Valid)

	dropped := len(slots.Rejected) + len(courses.Rejected) + len(entries.Rejected) + orphans
	return model.Payload{
		Slots:      slots.Valid,
		Courses:    courses.Valid,
		Entries:    kept,
		Theme:      model.ParseTheme(in.Theme),
		ExportSkin: model.ParseSkin(in.ExportSkin),
	}, dropped, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
