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
	pkgerrors "github.com/sarigr/uni-schedule-cloud/pkg/errors"
	"github.com/sarigr/uni-schedule-cloud/pkg/jwt"
	"github.com/sarigr/uni-schedule-cloud/pkg/redis"
)

var (
	ErrInvalidCredentials = errors.New("用户名或 PIN 错误")
	ErrUsernameTaken      = errors.New("用户名已被占用")
	ErrUserNotFound       = errors.New("用户不存在")
)

// AuthService 认证业务接口
type AuthService interface {
	SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.TokenResponse, error)
	SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.TokenResponse, error)
	// SignOut 将当前 Token 的 jti 加入黑名单，直到其自然过期
	SignOut(ctx context.Context, claims *jwt.Claims) error
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		rdb:    rdb,
		logger: logger,
	}
}

func (s *authService) SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.TokenResponse, error) {
	// 1. 规范化并校验凭据
	username, err := model.NormalizeUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if err := model.ValidatePin(req.Pin); err != nil {
		return nil, err
	}

	// 2. 哈希 PIN
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Pin), bcryptCost(s.cfg))
	if err != nil {
		s.logger.Error("PIN 哈希失败", zap.Error(err))
		return nil, err
	}

	// 3. 创建用户（用户名唯一）
	user := &model.User{Username: username, PinHash: string(hash)}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		s.logger.Error("创建用户失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	s.logger.Info("新用户注册", zap.String("user_id", user.UserID), zap.String("username", username))
	return s.issue(user)
}

func (s *authService) SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.TokenResponse, error) {
	// 格式不合法的用户名不可能存在，统一返回凭据错误
	username, err := model.NormalizeUsername(req.Username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.User.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(req.Pin)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *authService) SignOut(ctx context.Context, claims *jwt.Claims) error {
	if s.rdb == nil || claims == nil || claims.ID == "" {
		return nil
	}
	if err := s.rdb.BlacklistToken(ctx, claims.ID, claims.Remaining()); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return err
	}
	return nil
}

// issue 生成 Access Token 并构造响应
func (s *authService) issue(user *model.User) (*dto.TokenResponse, error) {
	token, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Username)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User: dto.UserResponse{
			ID:       user.UserID,
			Username: user.Username,
		},
	}, nil
}

// bcryptCost 配置值越界时使用默认强度
func bcryptCost(cfg *config.Config) int {
	if c := cfg.Auth.BcryptCost; c >= bcrypt.MinCost && c <= bcrypt.MaxCost {
		return c
	}
	return bcrypt.DefaultCost
}
