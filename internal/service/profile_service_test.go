package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sarigr/uni-schedule-cloud/internal/dto"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// ── 档案 ──

func TestEnsureProfile_CreatesOnce(t *testing.T) {
	d := newTestDeps()
	svc := NewProfileService(d.cfg, d.repo, d.logger)
	ctx := context.Background()

	p, err := svc.Ensure(ctx, "user-maria", "maria")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if p.IsMaster {
		t.Error("普通用户不应是管理员")
	}
	if p.CreatedAt != "2026-03-02T09:00:00Z" {
		t.Errorf("CreatedAt = %s", p.CreatedAt)
	}

	// 管理员名单变化不影响已有档案
	d.cfg.Auth.MasterUsernames = []string{"maria"}
	again, _ := svc.Ensure(ctx, "user-maria", "maria")
	if again.IsMaster {
		t.Error("已有档案不应被重新创建")
	}
	if len(d.profiles.profiles) != 1 {
		t.Errorf("档案数 = %d, want 1", len(d.profiles.profiles))
	}
}

func TestEnsureProfile_MasterFromConfig(t *testing.T) {
	d := newTestDeps()
	svc := NewProfileService(d.cfg, d.repo, d.logger)

	p, err := svc.Ensure(context.Background(), "user-admin", "admin")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !p.IsMaster {
		t.Error("名单中的用户名（大小写不敏感）应标记为管理员")
	}
}

func TestListProfiles(t *testing.T) {
	d := newTestDeps()
	svc := NewProfileService(d.cfg, d.repo, d.logger)
	ctx := context.Background()
	_, _ = svc.Ensure(ctx, "user-admin", "admin")
	_, _ = svc.Ensure(ctx, "user-nikos", "nikos")
	_, _ = svc.Ensure(ctx, "user-eleni", "eleni")

	t.Run("管理员", func(t *testing.T) {
		resp, err := svc.List(ctx, "user-admin")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		var names []string
		for _, p := range resp.List {
			names = append(names, p.Username)
		}
		want := []string{"admin", "eleni", "nikos"}
		if len(names) != len(want) {
			t.Fatalf("names = %v, want %v", names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("names = %v, want %v", names, want)
				break
			}
		}
	})

	t.Run("普通用户", func(t *testing.T) {
		if _, err := svc.List(ctx, "user-nikos"); !errors.Is(err, ErrForbidden) {
			t.Errorf("期望 ErrForbidden，实际: %v", err)
		}
	})

	t.Run("无档案", func(t *testing.T) {
		if _, err := svc.List(ctx, "user-ghost"); !errors.Is(err, ErrForbidden) {
			t.Errorf("期望 ErrForbidden，实际: %v", err)
		}
	})
}

// ── 管理员重置 PIN ──

func setupAdminTest(t *testing.T) (AdminService, *testDeps) {
	t.Helper()
	d := newTestDeps()
	profiles := NewProfileService(d.cfg, d.repo, d.logger)
	auth := NewAuthService(d.cfg, d.repo, d.jwtMgr, nil, d.logger)
	ctx := context.Background()

	for _, name := range []string{"admin", "nikos"} {
		resp, err := auth.SignUp(ctx, &dto.SignUpRequest{Username: name, Pin: "1234"})
		if err != nil {
			t.Fatalf("SignUp(%s): %v", name, err)
		}
		if _, err := profiles.Ensure(ctx, resp.User.ID, name); err != nil {
			t.Fatalf("Ensure(%s): %v", name, err)
		}
	}
	return NewAdminService(d.cfg, d.repo, d.logger), d
}

func TestResetPin_Success(t *testing.T) {
	svc, d := setupAdminTest(t)

	resp, err := svc.ResetPin(context.Background(), "user-admin", &dto.ResetPinRequest{Username: "Nikos", NewPin: "9876"})
	if err != nil {
		t.Fatalf("ResetPin: %v", err)
	}
	if !resp.OK {
		t.Fatalf("期望 OK，实际: %+v", resp)
	}

	user, _ := d.users.GetByUsername(context.Background(), "nikos")
	if err := bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte("9876")); err != nil {
		t.Error("新 PIN 未生效")
	}
}

func TestResetPin_Failures(t *testing.T) {
	svc, _ := setupAdminTest(t)
	ctx := context.Background()

	t.Run("非管理员", func(t *testing.T) {
		_, err := svc.ResetPin(ctx, "user-nikos", &dto.ResetPinRequest{Username: "admin", NewPin: "9876"})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("期望 ErrForbidden，实际: %v", err)
		}
	})

	tests := []struct {
		name string
		req  dto.ResetPinRequest
		msg  string
	}{
		{"用户不存在", dto.ResetPinRequest{Username: "eleni", NewPin: "9876"}, ErrUserNotFound.Error()},
		{"PIN 非法", dto.ResetPinRequest{Username: "nikos", NewPin: "98"}, model.ErrInvalidPin.Error()},
		{"用户名非法", dto.ResetPinRequest{Username: "n", NewPin: "9876"}, model.ErrInvalidUsername.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.ResetPin(ctx, "user-admin", &tt.req)
			if err != nil {
				t.Fatalf("业务失败不应返回 error: %v", err)
			}
			if resp.OK || resp.Message != tt.msg {
				t.Errorf("resp = %+v, want message %q", resp, tt.msg)
			}
		})
	}
}
