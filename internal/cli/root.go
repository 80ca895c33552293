// Package cli 命令行前端：在终端中编辑本地课表、导入导出、与托管后端同步。
//
// 每条命令都是独立进程：启动时打开本地存储并离线恢复登录态，
// 修改即时写入本地存储，只有 push 才会覆盖云端文档。
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarigr/uni-schedule-cloud/config"
	"github.com/sarigr/uni-schedule-cloud/internal/cloud"
	"github.com/sarigr/uni-schedule-cloud/internal/schedule"
	"github.com/sarigr/uni-schedule-cloud/internal/session"
	"github.com/sarigr/uni-schedule-cloud/pkg/localstore"
	applogger "github.com/sarigr/uni-schedule-cloud/pkg/logger"
)

// ErrAborted 用户在确认提示中选择了否
var ErrAborted = errors.New("已取消")

// Runtime 一次命令执行所需的依赖
type Runtime struct {
	Config  *config.ClientConfig
	Logger  *zap.Logger
	Storage localstore.Storage
	App     *session.App
}

// Opener 根据配置文件路径构造 Runtime
type Opener func(configPath string) (*Runtime, error)

// Open 默认的 Runtime 构造：bbolt 本地存储 + HTTP 后端客户端
func Open(configPath string) (*Runtime, error) {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := applogger.NewLogger(&cfg.Log, "weekgrid")
	if err != nil {
		return nil, err
	}

	storage, err := localstore.OpenBolt(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	rt, err := NewRuntime(cfg, storage, cloud.NewClient(cfg.APIBaseURL, cfg.Timeout, logger), logger)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	return rt, nil
}

// NewRuntime 加载本地课表并离线恢复登录态
func NewRuntime(cfg *config.ClientConfig, storage localstore.Storage, remote session.Remote, logger *zap.Logger) (*Runtime, error) {
	store := schedule.NewStore(storage, cfg.Collation, logger)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("加载本地课表失败: %w", err)
	}

	app := session.New(store, remote, storage, logger)
	if err := app.Resume(); err != nil {
		logger.Warn("恢复登录态失败", zap.Error(err))
	}

	return &Runtime{Config: cfg, Logger: logger, Storage: storage, App: app}, nil
}

// Close 释放本地存储
func (r *Runtime) Close() error {
	_ = r.Logger.Sync()
	return r.Storage.Close()
}

// Store 当前分区的课表
func (r *Runtime) Store() *schedule.Store { return r.App.Store() }

// cli 命令共享状态
type cli struct {
	open       Opener
	configPath string
	yes        bool

	rt  *Runtime
	in  *bufio.Reader
	out io.Writer
}

// newRoot 构造根命令；in/out 为交互输入与命令输出
func newRoot(open Opener, in io.Reader, out io.Writer) (*cobra.Command, *cli) {
	c := &cli{open: open, in: bufio.NewReader(in), out: out}

	root := &cobra.Command{
		Use:           "weekgrid",
		Short:         "带云同步的每周课表",
		Long:          `weekgrid 在本地存储中维护周一至周五的课表，可导出为自包含的 HTML 页面，并与托管后端同步。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.open(c.configPath)
			if err != nil {
				return err
			}
			c.rt = rt
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "配置文件（默认 ./config/weekgrid.yaml）")
	root.PersistentFlags().BoolVarP(&c.yes, "yes", "y", false, "对确认提示一律回答是")

	root.AddCommand(
		c.slotCommand(),
		c.courseCommand(),
		c.entryCommand(),
		c.showCommand(),
		c.groupsCommand(),
		c.themeCommand(),
		c.skinCommand(),
		c.exportCommand(),
		c.importCommand(),
		c.signUpCommand(),
		c.signInCommand(),
		c.signOutCommand(),
		c.pushCommand(),
		c.pullCommand(),
		c.statusCommand(),
		c.adminCommand(),
	)
	return root, c
}

// Execute 执行命令行；命令失败时同样关闭本地存储
func Execute(ctx context.Context, open Opener, args []string, in io.Reader, out io.Writer) error {
	root, c := newRoot(open, in, out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if c.rt != nil {
		if closeErr := c.rt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// ── 交互辅助 ──

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// readLine 读取一行输入（去掉首尾空白）；输入结束时返回已读内容
func (c *cli) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm 询问 y/N；--yes 时直接通过
func (c *cli) confirm(prompt string) (bool, error) {
	if c.yes {
		return true, nil
	}
	c.printf("%s [y/N] ", prompt)
	answer, err := c.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes", "ναι", "是":
		return true, nil
	default:
		return false, nil
	}
}

// pin 读取 PIN：优先使用参数值，否则从输入读取一行
func (c *cli) pin(flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	c.printf("%s: ", prompt)
	return c.readLine()
}
