package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarigr/uni-schedule-cloud/internal/export"
	"github.com/sarigr/uni-schedule-cloud/internal/grid"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// table 对齐输出的简单表格
type table struct {
	w *tabwriter.Writer
}

func newTable(out io.Writer, headers ...string) *table {
	t := &table{w: tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)}
	t.row(headers...)
	return t
}

func (t *table) row(cols ...string) {
	fmt.Fprintln(t.w, strings.Join(cols, "\t"))
}

func (t *table) flush() error { return t.w.Flush() }

// ── 课表网格 ──

func (c *cli) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"grid"},
		Short:   "打印周课表网格",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := c.rt.Store()
			courses := grid.CourseMap(store.Courses())
			cells := grid.Index(store.Entries())

			headers := []string{""}
			for _, d := range model.Weekdays {
				headers = append(headers, d.Label())
			}
			tw := newTable(c.out, headers...)

			for _, s := range store.Slots() {
				cols := []string{s.Label}
				for _, d := range model.Weekdays {
					cols = append(cols, cellText(cells, courses, d, s.ID))
				}
				tw.row(cols...)
			}
			return tw.flush()
		},
	}
}

// cellText 单元格文本："课程名 [T] 教室"；空单元格为空串
func cellText(cells map[string]model.Entry, courses map[string]model.Course, day model.Day, slotID string) string {
	e, ok := cells[model.CellKey(day, slotID)]
	if !ok {
		return ""
	}
	co, ok := courses[e.CourseID]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s [%s] %s", co.Title, e.ClassType.Badge(), grid.EffectiveRoom(e, &co))
}

func (c *cli) groupsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "按课程列出每周课次",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := c.rt.Store()
			slots := make(map[string]model.Slot)
			for _, s := range store.Slots() {
				slots[s.ID] = s
			}

			for _, g := range store.Groups() {
				c.printf("%s\n", g.Course.Title)
				for _, e := range g.Sessions {
					c.printf("  %-10s %-12s %s  %s  %s\n",
						e.Day.Label(), slots[e.SlotID].Label, e.ClassType.Badge(),
						grid.EffectiveRoom(e, &g.Course), grid.EffectiveProfessors(e, &g.Course))
				}
			}
			return nil
		},
	}
}

// ── 外观 ──

func (c *cli) themeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark]",
		Short:     "查看或设置界面主题",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(model.ThemeLight), string(model.ThemeDark)},
		RunE: func(cmd *cobra.Command, args []string) error {
			store := c.rt.Store()
			if len(args) == 1 {
				store.SetTheme(model.Theme(args[0]))
			}
			c.printf("%s\n", store.Theme())
			return nil
		},
	}
}

func (c *cli) skinCommand() *cobra.Command {
	var names []string
	for _, s := range export.Skins() {
		names = append(names, string(s))
	}

	return &cobra.Command{
		Use:       "skin [" + strings.Join(names, "|") + "]",
		Short:     "查看或设置导出样式",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := c.rt.Store()
			if len(args) == 1 {
				skin := model.Skin(args[0])
				if !slices.Contains(export.Skins(), skin) {
					return fmt.Errorf("未知导出样式 %q（可选 %s）", args[0], strings.Join(names, "、"))
				}
				store.SetSkin(skin)
			}
			c.printf("%s\n", store.Skin())
			return nil
		},
	}
}
