package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/sarigr/uni-schedule-cloud/internal/grid"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

const (
	gridSheet = "Πρόγραμμα"
	listSheet = "Μαθήματα"
)

// ═══════════════════════════════════════════════════════════
// RenderXLSX 导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Πρόγραμμα"：行 = 时间段（用户顺序），列 = 周一 ~ 周五
//     单元格：课程名 [T/L]，换行后为生效教室；空单元格为 "·"
//   - Sheet "Μαθήματα"：按课程分组的明细，每条记录一行

func RenderXLSX(doc Document) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(gridSheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	f.NewSheet(listSheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	// ── 表格 ──
	f.SetColWidth(gridSheet, "A", "A", 16)
	f.SetColWidth(gridSheet, "B", colName(len(model.Weekdays)), 24)

	f.SetCellValue(gridSheet, "A1", "Ώρα")
	for i, d := range model.Weekdays {
		f.SetCellValue(gridSheet, cell(colName(i+1), 1), d.Label())
	}
	f.SetCellStyle(gridSheet, "A1", cell(colName(len(model.Weekdays)), 1), headerStyle)

	rows := buildRows(doc)
	for r, rv := range rows {
		row := r + 2
		f.SetCellValue(gridSheet, cell("A", row), rv.Label)
		for i, cv := range rv.Cells {
			text := EmptyMarker
			if !cv.Empty {
				text = fmt.Sprintf("%s [%s]\n%s", cv.Title, cv.Badge, cv.Room)
			}
			f.SetCellValue(gridSheet, cell(colName(i+1), row), text)
		}
	}
	if len(rows) > 0 {
		f.SetCellStyle(gridSheet, "A2", cell(colName(len(model.Weekdays)), len(rows)+1), cellStyle)
	}

	// ── 列表 ──
	headers := []string{"Μάθημα", "Ημέρα", "Ώρα", "Τύπος", "Αίθουσα", "Διδάσκοντες", "URL"}
	widths := []float64{28, 12, 16, 8, 16, 28, 36}
	for i, h := range headers {
		col := colName(i)
		f.SetColWidth(listSheet, col, col, widths[i])
		f.SetCellValue(listSheet, cell(col, 1), h)
	}
	f.SetCellStyle(listSheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	slotLabels := make(map[string]string, len(doc.Slots))
	for _, s := range doc.Slots {
		slotLabels[s.ID] = s.DisplayLabel()
	}
	row := 2
	for _, g := range grid.GroupByCourse(doc.Courses, doc.Slots, doc.Entries, doc.collation()) {
		c := g.Course
		for _, e := range g.Sessions {
			values := []string{
				c.Title,
				e.Day.Label(),
				slotLabels[e.SlotID],
				e.ClassType.Badge(),
				grid.EffectiveRoom(e, &c),
				grid.EffectiveProfessors(e, &c),
				grid.EffectiveURL(e, &c),
			}
			for i, v := range values {
				f.SetCellValue(listSheet, cell(colName(i), row), v)
			}
			row++
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerateFail, err)
	}
	return buf, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
