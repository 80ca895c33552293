package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarigr/uni-schedule-cloud/internal/grid"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
	"github.com/sarigr/uni-schedule-cloud/internal/schedule"
)

// ── 时间段 ──

func (c *cli) slotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "管理时间段（网格行）",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "按显示顺序列出时间段",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := newTable(c.out, "ID", "开始", "结束", "标签")
			for _, s := range c.rt.Store().Slots() {
				tw.row(s.ID, s.Start, s.End, s.Label)
			}
			return tw.flush()
		},
	}

	var label string
	add := &cobra.Command{
		Use:   "add START END",
		Short: "追加时间段（HH:MM，24 小时制）",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.rt.Store().AddSlot(args[0], args[1], label)
			if err != nil {
				return err
			}
			c.printf("已添加时间段 %s（%s）\n", s.ID, s.Label)
			return nil
		},
	}
	add.Flags().StringVar(&label, "label", "", "行标签（默认 START–END）")

	var start, end, editLabel string
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "修改时间段的时间或标签",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch schedule.SlotPatch
			if cmd.Flags().Changed("start") {
				patch.Start = &start
			}
			if cmd.Flags().Changed("end") {
				patch.End = &end
			}
			if cmd.Flags().Changed("label") {
				patch.Label = &editLabel
			}
			s, err := c.rt.Store().UpdateSlot(args[0], patch)
			if err != nil {
				return err
			}
			c.printf("已更新时间段 %s：%s–%s %q\n", s.ID, s.Start, s.End, s.Label)
			return nil
		},
	}
	edit.Flags().StringVar(&start, "start", "", "开始时间 HH:MM")
	edit.Flags().StringVar(&end, "end", "", "结束时间 HH:MM")
	edit.Flags().StringVar(&editLabel, "label", "", "行标签")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "删除时间段及其中的全部排课",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := c.confirm(fmt.Sprintf("删除时间段 %s 及其排课？", args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return ErrAborted
			}
			removed, err := c.rt.Store().DeleteSlot(args[0])
			if err != nil {
				return err
			}
			c.printf("已删除时间段 %s（移除 %d 条排课）\n", args[0], removed)
			return nil
		},
	}

	var after bool
	move := &cobra.Command{
		Use:   "move ID TARGET",
		Short: "把时间段移到另一时间段之前（--after 为之后）",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.rt.Store().MoveSlot(args[0], args[1], after)
		},
	}
	move.Flags().BoolVar(&after, "after", false, "插入到 TARGET 之后而不是之前")

	cmd.AddCommand(list, add, edit, rm, move)
	return cmd
}

// ── 课程 ──

func (c *cli) courseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "管理课程",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "按课程名列出课程",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := c.rt.Store()
			courses := store.Courses()
			grid.SortCourses(courses, store.Collation())

			tw := newTable(c.out, "ID", "课程", "教室", "教师", "链接")
			for _, co := range courses {
				tw.row(co.ID, co.Title, co.DefaultRoom, co.DefaultProfessors, co.CourseURL)
			}
			return tw.flush()
		},
	}

	var in schedule.CourseInput
	save := &cobra.Command{
		Use:   "save TITLE",
		Short: "新建课程；指定 --id 时更新已有课程",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = args[0]
			co, err := c.rt.Store().SaveCourse(in)
			if err != nil {
				return err
			}
			c.printf("已保存课程 %s（%s）\n", co.ID, co.Title)
			return nil
		},
	}
	save.Flags().StringVar(&in.ID, "id", "", "已有课程的 ID")
	save.Flags().StringVar(&in.DefaultRoom, "room", "", "默认教室")
	save.Flags().StringVar(&in.DefaultProfessors, "professors", "", "默认教师")
	save.Flags().StringVar(&in.CourseURL, "url", "", "课程页面链接")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "删除课程及其全部排课",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := c.confirm(fmt.Sprintf("删除课程 %s 及其排课？", args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return ErrAborted
			}
			removed, err := c.rt.Store().DeleteCourse(args[0])
			if err != nil {
				return err
			}
			c.printf("已删除课程 %s（移除 %d 条排课）\n", args[0], removed)
			return nil
		},
	}

	cmd.AddCommand(list, save, rm)
	return cmd
}

// ── 排课记录 ──

func (c *cli) entryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "在网格单元格中放置或移除课程",
	}

	var (
		in        schedule.EntryInput
		classType string
	)
	set := &cobra.Command{
		Use:   "set DAY SLOT COURSE",
		Short: "把 COURSE 放入 (DAY, SLOT) 单元格",
		Long:  `DAY 取 Mon、Tue、Wed、Thu、Fri 之一。已被占用的单元格只有确认后才会被覆盖。`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(args[0])
			if err != nil {
				return err
			}
			in.Day, in.SlotID, in.CourseID = day, args[1], args[2]
			in.ClassType = model.ClassType(strings.ToUpper(classType))

			store := c.rt.Store()
			p, err := store.PlaceEntry(in)
			if err != nil {
				return err
			}
			if p.NeedsConfirmation() {
				title := p.Replaces().CourseID
				if co, ok := store.Course(title); ok {
					title = co.Title
				}
				ok, err := c.confirm(fmt.Sprintf("%s %s 已被 %q 占用，是否替换？", day.Label(), args[1], title))
				if err != nil {
					return err
				}
				if !ok {
					return ErrAborted
				}
				if err := store.ConfirmPlacement(p); err != nil {
					return err
				}
			}
			c.printf("已放置排课 %s\n", p.Entry().ID)
			return nil
		},
	}
	set.Flags().StringVar(&in.ID, "id", "", "已有排课的 ID（移动或修改该记录）")
	set.Flags().StringVar(&classType, "type", string(model.ClassTheory), "课程类型：THEORY 或 LAB")
	set.Flags().StringVar(&in.Room, "room", "", "覆盖教室")
	set.Flags().StringVar(&in.Professors, "professors", "", "覆盖教师")
	set.Flags().StringVar(&in.CourseURL, "url", "", "覆盖课程链接")

	list := &cobra.Command{
		Use:   "list",
		Short: "列出排课记录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := newTable(c.out, "ID", "星期", "时间段", "课程", "类型")
			for _, e := range c.rt.Store().Entries() {
				tw.row(e.ID, string(e.Day), e.SlotID, e.CourseID, string(e.ClassType))
			}
			return tw.flush()
		},
	}

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "删除排课记录",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.rt.Store().DeleteEntry(args[0])
		},
	}

	cmd.AddCommand(set, list, rm)
	return cmd
}

// parseDay 接受 Mon..Fri（不区分大小写）
func parseDay(s string) (model.Day, error) {
	for _, d := range model.Weekdays {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	return "", schedule.ErrInvalidDay
}
