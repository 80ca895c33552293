package model

// Course 课程及其默认教室、教师与链接
type Course struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	DefaultRoom       string `json:"defaultRoom"`
	DefaultProfessors string `json:"defaultProfessors"`
	CourseURL         string `json:"courseUrl"`
	CreatedAt         int64  `json:"createdAt"` // 毫秒时间戳
}
