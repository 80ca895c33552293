package schedule

import (
	"strings"

	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// CourseInput 新建或修改课程；ID 为空或不存在时新建
type CourseInput struct {
	ID                string
	Title             string
	DefaultRoom       string
	DefaultProfessors string
	CourseURL         string
}

// SaveCourse 新建或修改课程
func (s *Store) SaveCourse(in CourseInput) (model.Course, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Course{}, ErrBlankTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	course := model.Course{
		ID:                in.ID,
		Title:             title,
		DefaultRoom:       strings.TrimSpace(in.DefaultRoom),
		DefaultProfessors: strings.TrimSpace(in.DefaultProfessors),
		CourseURL:         strings.TrimSpace(in.CourseURL),
	}

	if i := s.courseIndex(in.ID); in.ID != "" && i >= 0 {
		course.CreatedAt = s.courses[i].CreatedAt
		s.courses[i] = course
	} else {
		if course.ID == "" {
			course.ID = s.newID()
		}
		course.CreatedAt = model.EpochMillis(s.now())
		s.courses = append(s.courses, course)
	}

	s.persist(KeyCourses, s.courses)
	return course, nil
}

// DeleteCourse 删除课程，并级联删除 courseId 等于该课程的全部记录；返回被删除的记录数
func (s *Store) DeleteCourse(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.courseIndex(id)
	if i < 0 {
		return 0, ErrCourseNotFound
	}
	s.courses = append(s.courses[:i:i], s.courses[i+1:]...)

	removed := s.removeEntries(func(e model.Entry) bool { return e.CourseID == id })
	s.persist(KeyCourses, s.courses)
	if removed > 0 {
		s.persist(KeyEntries, s.entries)
	}
	return removed, nil
}

func (s *Store) courseIndex(id string) int {
	for i, c := range s.courses {
		if c.ID == id {
			return i
		}
	}
	return -1
}
