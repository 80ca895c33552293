package schedule

import (
	"strings"

	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// SlotPatch 时间段字段修改（nil 表示不修改）
type SlotPatch struct {
	Start *string
	End   *string
	Label *string
}

// AddSlot 在末尾追加时间段；label 为空时使用 "start–end"
func (s *Store) AddSlot(start, end, label string) (model.Slot, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if !model.ValidHHMM(start) || !model.ValidHHMM(end) {
		return model.Slot{}, ErrInvalidTime
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = model.DefaultSlotLabel(start, end)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot := model.Slot{ID: s.newID(), Start: start, End: end, Label: label}
	s.slots = append(s.slots, slot)
	s.persist(KeySlots, s.slots)
	return slot, nil
}

// UpdateSlot 修改时间段字段
func (s *Store) UpdateSlot(id string, patch SlotPatch) (model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.slotIndex(id)
	if i < 0 {
		return model.Slot{}, ErrSlotNotFound
	}
	slot := s.slots[i]
	if patch.Start != nil {
		slot.Start = strings.TrimSpace(*patch.Start)
	}
	if patch.End != nil {
		slot.End = strings.TrimSpace(*patch.End)
	}
	if !model.ValidHHMM(slot.Start) || !model.ValidHHMM(slot.End) {
		return model.Slot{}, ErrInvalidTime
	}
	if patch.Label != nil {
		slot.Label = strings.TrimSpace(*patch.Label)
	}
	if slot.Label == "" {
		slot.Label = model.DefaultSlotLabel(slot.Start, slot.End)
	}

	s.slots[i] = slot
	s.persist(KeySlots, s.slots)
	return slot, nil
}

// DeleteSlot 删除时间段，并级联删除引用它的全部记录；返回被删除的记录数
func (s *Store) DeleteSlot(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.slotIndex(id)
	if i < 0 {
		return 0, ErrSlotNotFound
	}
	s.slots = append(s.slots[:i:i], s.slots[i+1:]...)

	removed := s.removeEntries(func(e model.Entry) bool { return e.SlotID == id })
	s.persist(KeySlots, s.slots)
	if removed > 0 {
		s.persist(KeyEntries, s.entries)
	}
	return removed, nil
}

// MoveSlot 拖拽排序：把 sourceID 移到 targetID 之前（after=false）或之后（after=true）。
// 插入位置在移除源元素之后重新计算，因此源在目标之前时目标不会错位。
func (s *Store) MoveSlot(sourceID, targetID string, after bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.slotIndex(sourceID)
	if from < 0 || s.slotIndex(targetID) < 0 {
		return ErrSlotNotFound
	}
	if sourceID == targetID {
		return nil
	}

	moved := s.slots[from]
	rest := append(s.slots[:from:from], s.slots[from+1:]...)

	to := 0
	for i, sl := range rest {
		if sl.ID == targetID {
			to = i
			break
		}
	}
	if after {
		to++
	}

	out := make([]model.Slot, 0, len(s.slots))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)

	s.slots = out
	s.persist(KeySlots, s.slots)
	return nil
}

func (s *Store) slotIndex(id string) int {
	for i, sl := range s.slots {
		if sl.ID == id {
			return i
		}
	}
	return -1
}

// removeEntries 删除满足条件的记录，返回删除数量
func (s *Store) removeEntries(match func(model.Entry) bool) int {
	kept := s.entries[:0:0]
	for _, e := range s.entries {
		if !match(e) {
			kept = append(kept, e)
		}
	}
	removed := len(s.entries) - len(kept)
	s.entries = kept
	return removed
}
