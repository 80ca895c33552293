// Package cloud 是托管后端的 HTTP 客户端。
// 同步以整份文档为单位：加载返回完整 Payload，保存整体覆盖，不做合并，后写者胜出。
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sarigr/uni-schedule-cloud/internal/dto"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

const (
	apiPrefix       = "/api/v1"
	maxResponseSize = 10 * 1024 * 1024 // 10MB
)

var ErrNotSignedIn = errors.New("尚未登录")

// APIError 后端返回的业务错误
type APIError struct {
	Status  int    // HTTP 状态码
	Code    int    // 业务错误码
	Message string // 后端给出的说明
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("后端错误 (HTTP %d, code %d)", e.Status, e.Code)
	}
	return fmt.Sprintf("%s (HTTP %d, code %d)", e.Message, e.Status, e.Code)
}

// IsUnauthorized 登录态失效（Token 过期、已登出或被拒绝）
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsForbidden 无管理员权限
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden
}

// envelope 统一响应结构（与 pkg/response 对应）
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details string          `json:"details"`
}

// Client 托管后端客户端；Token 由 SignIn/SignUp 写入，SignOut 清除
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewClient 创建客户端
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Token 当前 Access Token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken 恢复已保存的 Token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ── 认证 ──

// SignUp 注册并登录
func (c *Client) SignUp(ctx context.Context, username, pin string) (*dto.TokenResponse, error) {
	return c.authenticate(ctx, "/auth/signup", username, pin)
}

// SignIn 登录
func (c *Client) SignIn(ctx context.Context, username, pin string) (*dto.TokenResponse, error) {
	return c.authenticate(ctx, "/auth/signin", username, pin)
}

func (c *Client) authenticate(ctx context.Context, path, username, pin string) (*dto.TokenResponse, error) {
	var out dto.TokenResponse
	req := dto.SignUpRequest{Username: username, Pin: pin}
	if err := c.do(ctx, http.MethodPost, path, req, &out, false); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

// SignOut 登出；无论后端是否成功，本地 Token 都会被清除
func (c *Client) SignOut(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/signout", nil, nil, true)
	c.SetToken("")
	return err
}

// ── 档案 ──

// EnsureProfile 获取当前用户档案，不存在时由后端创建
func (c *Client) EnsureProfile(ctx context.Context) (*dto.ProfileResponse, error) {
	var out dto.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/profile", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProfiles 全部用户档案（仅管理员，由后端校验）
func (c *Client) ListProfiles(ctx context.Context) ([]dto.ProfileResponse, error) {
	var out dto.ProfileListResponse
	if err := c.do(ctx, http.MethodGet, "/profiles", nil, &out, true); err != nil {
		return nil, err
	}
	return out.List, nil
}

// ResetPin 重置他人 PIN（仅管理员，由后端校验）
func (c *Client) ResetPin(ctx context.Context, username, newPin string) (*dto.ResetPinResponse, error) {
	var out dto.ResetPinResponse
	req := dto.ResetPinRequest{Username: username, NewPin: newPin}
	if err := c.do(ctx, http.MethodPost, "/admin/reset-pin", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── 课表文档 ──

// LoadSchedule 加载云端文档；从未保存过时返回 nil, nil
func (c *Client) LoadSchedule(ctx context.Context) (*model.Payload, error) {
	var out dto.ScheduleResponse
	if err := c.do(ctx, http.MethodGet, "/schedule", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Payload, nil
}

// SaveSchedule 整体覆盖云端文档，返回服务端更新时间
func (c *Client) SaveSchedule(ctx context.Context, p model.Payload) (time.Time, error) {
	var out dto.SaveScheduleResponse
	if err := c.do(ctx, http.MethodPut, "/schedule", p, &out, true); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, out.UpdatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析更新时间失败: %w", err)
	}
	return t, nil
}

// ── 请求 ──

func (c *Client) do(ctx context.Context, method, path string, body, out any, auth bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.Token()
		if token == "" {
			return ErrNotSignedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("请求后端失败", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("请求后端失败: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("解析后端响应失败: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest || env.Code != 0 {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("解析后端响应失败: %w", err)
	}
	return nil
}
