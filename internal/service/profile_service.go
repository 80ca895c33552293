package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sarigr/uni-schedule-cloud/config"
	"github.com/sarigr/uni-schedule-cloud/internal/dto"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
	"github.com/sarigr/uni-schedule-cloud/internal/repository"
)

// ErrForbidden 非管理员调用管理员接口
var ErrForbidden = errors.New("仅管理员可执行此操作")

// ProfileService 用户档案业务接口
type ProfileService interface {
	// Ensure 获取当前用户档案，不存在时创建
	Ensure(ctx context.Context, userID, username string) (*dto.ProfileResponse, error)
	// List 列出全部档案（仅管理员）
	List(ctx context.Context, callerID string) (*dto.ProfileListResponse, error)
}

type profileService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewProfileService 创建 ProfileService 实例
func NewProfileService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) ProfileService {
	return &profileService{cfg: cfg, repo: repo, logger: logger}
}

func (s *profileService) Ensure(ctx context.Context, userID, username string) (*dto.ProfileResponse, error) {
	p, err := s.repo.Profile.FirstOrCreate(ctx, &model.Profile{
		UserID:   userID,
		Username: username,
		IsMaster: s.cfg.Auth.IsMaster(username),
	})
	if err != nil {
		s.logger.Error("获取或创建档案失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := toProfileResponse(p)
	return &resp, nil
}

func (s *profileService) List(ctx context.Context, callerID string) (*dto.ProfileListResponse, error) {
	if err := requireMaster(ctx, s.repo, callerID); err != nil {
		return nil, err
	}

	list, err := s.repo.Profile.List(ctx)
	if err != nil {
		s.logger.Error("查询档案列表失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.ProfileResponse, 0, len(list))
	for i := range list {
		items = append(items, toProfileResponse(&list[i]))
	}
	return &dto.ProfileListResponse{List: items}, nil
}

// requireMaster 以数据库中的档案为准判断管理员身份
func requireMaster(ctx context.Context, repo *repository.Repository, userID string) error {
	p, err := repo.Profile.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !p.IsMaster {
		return ErrForbidden
	}
	return nil
}

func toProfileResponse(p *model.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		UserID:    p.UserID,
		Username:  p.Username,
		IsMaster:  p.IsMaster,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
