package repository

import (
	"github.com/ManuelReschke/StudyOn/app/models"
	"gorm.io/gorm"
)

// CourseRepository defines the interface for course-related database operations
type CourseRepository interface {
	Create(course *models.Course) error
	GetByID(id uint) (*models.Course, error)
	GetByCode(code string) (*models.Course, error)
	GetAll() ([]models.Course, error)
	Update(course *models.Course) error
	// Delete removes the course and its lessons in one transaction and
	// returns how many lessons were removed.
	Delete(id uint) (int64, error)
	Count() (int64, error)
	CodeExists(code string) (bool, error)
	CodeExistsExceptID(code string, id uint) (bool, error)
}

// LessonRepository defines the interface for lesson-related database operations
type LessonRepository interface {
	Create(lesson *models.Lesson) error
	GetByID(id uint) (*models.Lesson, error)
	GetByCourseID(courseID uint) ([]models.Lesson, error)
	Update(lesson *models.Lesson) error
	Delete(id uint) error
	CountByCourseID(courseID uint) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Course CourseRepository
	Lesson LessonRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Course: NewCourseRepository(db),
		Lesson: NewLessonRepository(db),
	}
}
