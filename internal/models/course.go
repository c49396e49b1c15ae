package models

// CourseModule is one activity instance inside a course.
type CourseModule struct {
	ID        int64  `db:"id" json:"id"`
	CourseID  int64  `db:"course_id" json:"courseId"`
	Section   int    `db:"section" json:"section"`
	Component string `db:"component" json:"component"`
	Name      string `db:"name" json:"name"`
}

// CourseSection is one numbered section of a course.
type CourseSection struct {
	CourseID int64  `db:"course_id" json:"courseId"`
	Number   int    `db:"number" json:"number"`
	Name     string `db:"name" json:"name"`
}

// UserDetail carries the participant fields returned by search reports.
type UserDetail struct {
	ID        int64  `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	Email     string `db:"email" json:"email"`
	AvatarURL string `db:"avatar_url" json:"avatarUrl"`
}
