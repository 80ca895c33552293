package export

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/sarigr/uni-schedule-cloud/internal/grid"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// ── ICS 导出 ──────────────────────────────────────────────
//
// 每条排课记录生成一个 VEVENT：
//   - DTSTART/DTEND 取 weekOf 所在周的对应星期 + 时间段起止时间，
//     按当地时间写入并带 TZID，夏令时切换后仍是同一钟点
//   - RRULE:FREQ=WEEKLY（无结束日期，学期长度由日历客户端决定）
//   - SUMMARY 为课程名 + 类型角标，LOCATION 为生效教室
// ─────────────────────────────────────────────────────────────

const (
	icsProductID = "-//uni-schedule//weekgrid//EL"

	icsLocalFormat = "20060102T150405"
	icsUTCFormat   = "20060102T150405Z"
)

// RenderICS 导出为 iCalendar；weekOf 为任意一天，事件从该周的周一开始排布
func RenderICS(doc Document, weekOf time.Time, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.Local
	}
	if len(doc.Entries) == 0 {
		return "", ErrNoEntries
	}
	monday := mondayOf(weekOf.In(loc))
	stamp := doc.ExportedAt.UTC()

	slots := make(map[string]model.Slot, len(doc.Slots))
	for _, s := range doc.Slots {
		slots[s.ID] = s
	}
	courses := grid.CourseMap(doc.Courses)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName("Εβδομαδιαίο πρόγραμμα")
	tzid := tzidOf(loc)
	if tzid != "" {
		cal.SetXWRTimezone(tzid)
	}

	for _, e := range doc.Entries {
		slot, ok := slots[e.SlotID]
		c, known := courses[e.CourseID]
		if !ok || !known {
			continue
		}
		day := monday.AddDate(0, 0, e.Day.Index())
		start, err := atClock(day, slot.Start)
		if err != nil {
			return "", fmt.Errorf("时间段 %s: %w", slot.ID, err)
		}
		end, err := atClock(day, slot.End)
		if err != nil {
			return "", fmt.Errorf("时间段 %s: %w", slot.ID, err)
		}

		evt := cal.AddEvent(e.ID + "@" + AppTag)
		evt.SetDtStampTime(stamp)
		setEventTime(evt, ics.ComponentPropertyDtStart, start, tzid)
		setEventTime(evt, ics.ComponentPropertyDtEnd, end, tzid)
		evt.SetSummary(fmt.Sprintf("%s [%s]", c.Title, e.ClassType.Badge()))
		if room := grid.EffectiveRoom(e, &c); room != grid.Placeholder {
			evt.SetLocation(room)
		}
		if prof := grid.EffectiveProfessors(e, &c); prof != grid.Placeholder {
			evt.SetDescription(prof)
		}
		if u := strings.TrimSpace(grid.EffectiveURL(e, &c)); u != "" {
			evt.SetURL(u)
		}
		evt.AddRrule("FREQ=WEEKLY")
	}
	return cal.Serialize(), nil
}

// tzidOf 返回可写入 TZID 的 IANA 名称；UTC 与进程本地时区返回空串
func tzidOf(loc *time.Location) string {
	switch name := loc.String(); name {
	case "", "UTC", "Local":
		return ""
	default:
		return name
	}
}

// setEventTime 有 tzid 时写本地时间加 TZID 参数，否则写 UTC
func setEventTime(evt *ics.VEvent, prop ics.ComponentProperty, t time.Time, tzid string) {
	if tzid == "" {
		evt.SetProperty(prop, t.UTC().Format(icsUTCFormat))
		return
	}
	evt.SetProperty(prop, t.Format(icsLocalFormat), &ics.KeyValues{
		Key:   string(ics.ParameterTzid),
		Value: []string{tzid},
	})
}

// mondayOf 返回 t 所在周周一 00:00
func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atClock(day time.Time, hhmm string) (time.Time, error) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, day.Location()), nil
}
