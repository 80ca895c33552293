package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sarigr/uni-schedule-cloud/config"
	"github.com/sarigr/uni-schedule-cloud/internal/dto"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
	"github.com/sarigr/uni-schedule-cloud/internal/repository"
)

// AdminService 管理员业务接口
type AdminService interface {
	// ResetPin 重置指定用户的 PIN
	// 业务上的失败（用户不存在、PIN 格式错误）以 OK=false 返回，权限不足返回 ErrForbidden
	ResetPin(ctx context.Context, callerID string, req *dto.ResetPinRequest) (*dto.ResetPinResponse, error)
}

type adminService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAdminService 创建 AdminService 实例
func NewAdminService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) AdminService {
	return &adminService{cfg: cfg, repo: repo, logger: logger}
}

func (s *adminService) ResetPin(ctx context.Context, callerID string, req *dto.ResetPinRequest) (*dto.ResetPinResponse, error) {
	if err := requireMaster(ctx, s.repo, callerID); err != nil {
		return nil, err
	}

	username, err := model.NormalizeUsername(req.Username)
	if err != nil {
		return &dto.ResetPinResponse{OK: false, Message: err.Error()}, nil
	}
	if err := model.ValidatePin(req.NewPin); err != nil {
		return &dto.ResetPinResponse{OK: false, Message: err.Error()}, nil
	}

	user, err := s.repo.User.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.ResetPinResponse{OK: false, Message: ErrUserNotFound.Error()}, nil
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPin), bcryptCost(s.cfg))
	if err != nil {
		s.logger.Error("PIN 哈希失败", zap.Error(err))
		return nil, err
	}

	if err := s.repo.User.UpdatePinHash(ctx, user.UserID, string(hash)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.ResetPinResponse{OK: false, Message: ErrUserNotFound.Error()}, nil
		}
		s.logger.Error("更新 PIN 失败", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("管理员重置 PIN",
		zap.String("operator", callerID),
		zap.String("target", user.UserID),
	)
	return &dto.ResetPinResponse{OK: true}, nil
}
