package repository

import (
	"github.com/ManuelReschke/StudyOn/app/models"
	"gorm.io/gorm"
)

// lessonRepository implements the LessonRepository interface
type lessonRepository struct {
	db *gorm.DB
}

// NewLessonRepository creates a new lesson repository instance
func NewLessonRepository(db *gorm.DB) LessonRepository {
	return &lessonRepository{db: db}
}

func (r *lessonRepository) Create(lesson *models.Lesson) error {
	return r.db.Omit("Course").Create(lesson).Error
}

// GetByID retrieves a lesson together with its course
func (r *lessonRepository) GetByID(id uint) (*models.Lesson, error) {
	var lesson models.Lesson
	err := r.db.Preload("Course").First(&lesson, id).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepository) GetByCourseID(courseID uint) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := r.db.Where("course_id = ?", courseID).Order("serial_number ASC, id ASC").Find(&lessons).Error
	return lessons, err
}

func (r *lessonRepository) Update(lesson *models.Lesson) error {
	return r.db.Model(lesson).Select("name", "content", "serial_number", "course_id").Updates(lesson).Error
}

func (r *lessonRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Lesson{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *lessonRepository) CountByCourseID(courseID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}
