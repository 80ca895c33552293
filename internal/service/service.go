package service

import (
	"go.uber.org/zap"

	"github.com/sarigr/uni-schedule-cloud/config"
	"github.com/sarigr/uni-schedule-cloud/internal/repository"
	"github.com/sarigr/uni-schedule-cloud/pkg/jwt"
	"github.com/sarigr/uni-schedule-cloud/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth     AuthService
	Profile  ProfileService
	Schedule ScheduleService
	Admin    AdminService
	Export   ExportService
}

// NewService 创建 Service 聚合
// rdb 可为 nil（未配置 Redis 时登出不写黑名单）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:     NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Profile:  NewProfileService(cfg, repo, logger),
		Schedule: NewScheduleService(repo, logger),
		Admin:    NewAdminService(cfg, repo, logger),
		Export:   NewExportService(cfg, logger),
	}
}
