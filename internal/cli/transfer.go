package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarigr/uni-schedule-cloud/internal/export"
)

// ── 导出 ──

func (c *cli) exportCommand() *cobra.Command {
	var (
		out    string
		weekOf string
		tz     string
	)

	cmd := &cobra.Command{
		Use:   "export html|xlsx|ics",
		Short: "把课表导出为独立文件",
		Long: `html 生成自包含页面，内嵌备份，可由 "weekgrid import" 读回。
xlsx 生成包含网格与课程列表的工作簿。ics 生成每周重复的日历事件。`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"html", "xlsx", "ics"},
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			store := c.rt.Store()
			doc := export.FromPayload(store.Payload(), now, store.Collation())

			var (
				data []byte
				ext  = args[0]
			)
			switch ext {
			case "html":
				page, err := export.RenderHTML(doc)
				if err != nil {
					return err
				}
				data = []byte(page)
			case "xlsx":
				buf, err := export.RenderXLSX(doc)
				if err != nil {
					return err
				}
				data = buf.Bytes()
			case "ics":
				cal, err := c.renderICS(doc, now, weekOf, tz)
				if err != nil {
					return err
				}
				data = []byte(cal)
			default:
				return fmt.Errorf("未知导出格式 %q", ext)
			}

			if out == "" {
				out = fmt.Sprintf("uni-schedule-%s.%s", now.Format("2006-01-02"), ext)
			}
			if out == "-" {
				_, err := c.out.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			c.printf("已写入 %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", `输出文件（"-" 表示标准输出，默认 uni-schedule-YYYY-MM-DD.EXT）`)
	cmd.Flags().StringVar(&weekOf, "week-of", "", "ics：首周内任意日期（YYYY-MM-DD）")
	cmd.Flags().StringVar(&tz, "tz", "", "ics：IANA 时区（默认取配置）")
	return cmd
}

func (c *cli) renderICS(doc export.Document, now time.Time, weekOf, tz string) (string, error) {
	if tz == "" {
		tz = c.rt.Config.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("无效时区 %q: %w", tz, err)
	}
	week := now
	if weekOf != "" {
		week, err = time.ParseInLocation("2006-01-02", weekOf, loc)
		if err != nil {
			return "", fmt.Errorf("无效的 --week-of %q: %w", weekOf, err)
		}
	}
	return export.RenderICS(doc, week, loc)
}

// ── 导入 ──

func (c *cli) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "用导出 HTML 中内嵌的备份替换课表",
		Long:  `FILE 为 "weekgrid export html" 生成的页面（"-" 读取标准输入）。确认替换之前不做任何修改。`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			app := c.rt.App
			pending, err := app.StageImport(r)
			if err != nil {
				return err
			}

			ok, err := c.confirm(pending.Prompt())
			if err != nil {
				return err
			}
			if !ok {
				app.CancelImport()
				return ErrAborted
			}

			dropped, err := app.ConfirmImport()
			if err != nil {
				return err
			}
			if dropped > 0 {
				c.printf("已导入；跳过 %d 条引用了不存在的时间段或课程的排课\n", dropped)
				return nil
			}
			c.printf("已导入\n")
			return nil
		},
	}
}
