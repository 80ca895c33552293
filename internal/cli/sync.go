package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarigr/uni-schedule-cloud/internal/cloud"
	"github.com/sarigr/uni-schedule-cloud/internal/session"
)

// ── 账号 ──

func (c *cli) signUpCommand() *cobra.Command {
	var pin string
	cmd := &cobra.Command{
		Use:   "signup USERNAME",
		Short: "注册账号并登录",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.pin(pin, "PIN（4-8 位数字）")
			if err != nil {
				return err
			}
			if err := c.rt.App.SignUp(cmd.Context(), args[0], p); err != nil {
				return err
			}
			c.printf("已注册并登录：%s\n", c.rt.App.Profile().Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "PIN（省略时从输入读取）")
	return cmd
}

func (c *cli) signInCommand() *cobra.Command {
	var pin string
	cmd := &cobra.Command{
		Use:     "login USERNAME",
		Aliases: []string{"signin"},
		Short:   "登录；云端有文档时替换本地课表",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.pin(pin, "PIN")
			if err != nil {
				return err
			}
			if err := c.rt.App.SignIn(cmd.Context(), args[0], p); err != nil {
				return err
			}
			profile := c.rt.App.Profile()
			if profile.IsMaster {
				c.printf("已登录：%s（管理员）\n", profile.Username)
				return nil
			}
			c.printf("已登录：%s\n", profile.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "PIN（省略时从输入读取）")
	return cmd
}

func (c *cli) signOutCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Aliases: []string{"signout"},
		Short:   "登出并回到未登录的本地课表",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !c.rt.App.SignedIn() {
				return session.ErrNotSignedIn
			}
			if err := c.rt.App.SignOut(cmd.Context()); err != nil {
				return err
			}
			c.printf("已登出\n")
			return nil
		},
	}
}

// ── 同步 ──

func (c *cli) pushCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "push",
		Aliases: []string{"save"},
		Short:   "用本地课表覆盖云端文档",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			updated, err := c.rt.App.Save(cmd.Context())
			if err != nil {
				return err
			}
			c.printf("已保存于 %s\n", updated.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func (c *cli) pullCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "校验登录态并用云端文档替换本地课表",
		Long:  `先向后端校验保存的登录态并刷新档案，再加载云端文档。登录已失效时回到未登录状态；网络错误时保留登录态与本地课表。`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := c.rt.App
			if !app.SignedIn() {
				return session.ErrNotSignedIn
			}
			ok, err := c.confirm("用云端文档替换本地课表？")
			if err != nil {
				return err
			}
			if !ok {
				return ErrAborted
			}

			loaded, err := app.Restore(cmd.Context())
			if err != nil {
				if cloud.IsUnauthorized(err) {
					return fmt.Errorf("登录已失效，请重新登录: %w", err)
				}
				return err
			}
			if !loaded {
				c.printf("云端尚无文档\n")
				return nil
			}
			c.printf("已载入云端文档\n")
			return nil
		},
	}
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "查看登录用户、本地课表规模与最近的后端错误",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := c.rt.App
			store := app.Store()
			if profile := app.Profile(); profile != nil {
				role := "普通用户"
				if profile.IsMaster {
					role = "管理员"
				}
				c.printf("用户：%s（%s）\n", profile.Username, role)
			} else {
				c.printf("用户：（未登录）\n")
			}
			c.printf("后端：%s\n", c.rt.Config.APIBaseURL)
			c.printf("课表：%d 个时间段，%d 门课程，%d 条排课\n",
				len(store.Slots()), len(store.Courses()), len(store.Entries()))
			c.printf("主题：%s，导出样式 %s\n", store.Theme(), store.Skin())

			// 错误提示只显示一次
			if msg := app.Status(); msg != "" {
				c.printf("最近错误：%s\n", msg)
				app.ClearStatus()
			}
			return nil
		},
	}
}

// ── 管理员 ──

func (c *cli) adminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "管理员操作",
	}

	profiles := &cobra.Command{
		Use:   "profiles",
		Short: "列出全部用户档案",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.rt.App.ListProfiles(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(c.out, "用户名", "管理员", "创建时间")
			for _, p := range list {
				master := ""
				if p.IsMaster {
					master = "是"
				}
				tw.row(p.Username, master, p.CreatedAt)
			}
			return tw.flush()
		},
	}

	var pin string
	resetPin := &cobra.Command{
		Use:   "reset-pin USERNAME",
		Short: "为其他用户设置新 PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.pin(pin, "新 PIN（4-8 位数字）")
			if err != nil {
				return err
			}
			res, err := c.rt.App.ResetPin(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			if !res.OK {
				c.printf("未重置：%s\n", res.Message)
				return nil
			}
			c.printf("已重置 %s 的 PIN\n", args[0])
			return nil
		},
	}
	resetPin.Flags().StringVar(&pin, "pin", "", "新 PIN（省略时从输入读取）")

	cmd.AddCommand(profiles, resetPin)
	return cmd
}
