package schedule

import (
	"strings"

	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// EntryInput 排课请求；ID 非空表示修改已有记录（可移动到其他单元格）
type EntryInput struct {
	ID         string
	CourseID   string
	Day        model.Day
	SlotID     string
	ClassType  model.ClassType
	Room       string
	Professors string
	CourseURL  string
}

// Placement 一次排课操作。
// 目标单元格被其他记录占用时，PlaceEntry 不做任何修改，返回 NeedsConfirmation()==true 的 Placement，
// 调用方征得用户确认后再调用 ConfirmPlacement 执行覆盖。
type Placement struct {
	entry    model.Entry
	replaces *model.Entry
	edit     bool // 修改已有记录
	applied  bool
}

// Entry 待写入（或已写入）的记录
func (p *Placement) Entry() model.Entry { return p.entry }

// Replaces 将被覆盖的记录；单元格为空时为 nil
func (p *Placement) Replaces() *model.Entry { return p.replaces }

// NeedsConfirmation 是否仍在等待覆盖确认
func (p *Placement) NeedsConfirmation() bool { return !p.applied }

// PlaceEntry 按 (day, slotId) 写入记录
func (s *Store) PlaceEntry(in EntryInput) (*Placement, error) {
	if !in.Day.Valid() {
		return nil, ErrInvalidDay
	}
	if !in.ClassType.Valid() {
		return nil, ErrInvalidClassType
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slotIndex(in.SlotID) < 0 {
		return nil, ErrSlotNotFound
	}
	if s.courseIndex(in.CourseID) < 0 {
		return nil, ErrCourseNotFound
	}

	entry := model.Entry{
		ID:         in.ID,
		CourseID:   in.CourseID,
		Day:        in.Day,
		SlotID:     in.SlotID,
		ClassType:  in.ClassType,
		Room:       strings.TrimSpace(in.Room),
		Professors: strings.TrimSpace(in.Professors),
		CourseURL:  strings.TrimSpace(in.CourseURL),
	}
	if in.ID != "" {
		i := s.entryIndex(in.ID)
		if i < 0 {
			return nil, ErrEntryNotFound
		}
		entry.CreatedAt = s.entries[i].CreatedAt
	} else {
		entry.ID = s.newID()
		entry.CreatedAt = model.EpochMillis(s.now())
	}

	p := &Placement{entry: entry, edit: in.ID != ""}
	if occupant, ok := s.occupant(entry.Cell()); ok && occupant.ID != entry.ID {
		p.replaces = &occupant
		return p, nil
	}

	s.apply(p)
	return p, nil
}

// ConfirmPlacement 确认覆盖被占用的单元格。
// 暂存之后原占用记录已被删除时直接写入；单元格被其他记录占用，
// 或时间段、课程、被修改的记录已不存在时返回 ErrStalePlacement 且不做修改。
func (s *Store) ConfirmPlacement(p *Placement) error {
	if p == nil || p.applied {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if occupant, ok := s.occupant(p.entry.Cell()); ok {
		if p.replaces == nil || occupant != *p.replaces {
			return ErrStalePlacement
		}
	}
	if s.slotIndex(p.entry.SlotID) < 0 || s.courseIndex(p.entry.CourseID) < 0 {
		return ErrStalePlacement
	}
	if p.edit && s.entryIndex(p.entry.ID) < 0 {
		return ErrStalePlacement
	}

	s.apply(p)
	return nil
}

// DeleteEntry 删除单条记录
func (s *Store) DeleteEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.entryIndex(id)
	if i < 0 {
		return ErrEntryNotFound
	}
	s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
	s.persist(KeyEntries, s.entries)
	return nil
}

// apply 移除单元格原有记录和同 ID 的旧记录后追加新记录
func (s *Store) apply(p *Placement) {
	cell := p.entry.Cell()
	id := p.entry.ID
	s.removeEntries(func(e model.Entry) bool { return e.Cell() == cell || e.ID == id })
	s.entries = append(s.entries, p.entry)
	p.applied = true
	s.persist(KeyEntries, s.entries)
}

func (s *Store) occupant(cell string) (model.Entry, bool) {
	for _, e := range s.entries {
		if e.Cell() == cell {
			return e, true
		}
	}
	return model.Entry{}, false
}

func (s *Store) entryIndex(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
