package repository

import (
	"github.com/ManuelReschke/StudyOn/app/models"
	"gorm.io/gorm"
)

// courseRepository implements the CourseRepository interface
type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository creates a new course repository instance
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func orderedLessons(db *gorm.DB) *gorm.DB {
	return db.Order("serial_number ASC, id ASC")
}

func (r *courseRepository) Create(course *models.Course) error {
	return r.db.Create(course).Error
}

// GetByID retrieves a course with its lessons ordered by serial number
func (r *courseRepository) GetByID(id uint) (*models.Course, error) {
	var course models.Course
	err := r.db.Preload("Lessons", orderedLessons).First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) GetByCode(code string) (*models.Course, error) {
	var course models.Course
	err := r.db.Where("code = ?", code).First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) GetAll() ([]models.Course, error) {
	var courses []models.Course
	err := r.db.Preload("Lessons", orderedLessons).Order("id ASC").Find(&courses).Error
	return courses, err
}

// Update saves the course columns only. Lessons are managed separately.
func (r *courseRepository) Update(course *models.Course) error {
	return r.db.Model(course).Select("code", "name", "description").Updates(course).Error
}

func (r *courseRepository) Delete(id uint) (int64, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.Select("id").First(&course, id).Error; err != nil {
			return err
		}
		res := tx.Where("course_id = ?", id).Delete(&models.Lesson{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Delete(&models.Course{}, id).Error
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *courseRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Course{}).Count(&count).Error
	return count, err
}

// CodeExists checks if a course code already exists
func (r *courseRepository) CodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Course{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// CodeExistsExceptID checks if a code exists for any course other than id
func (r *courseRepository) CodeExistsExceptID(code string, id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Course{}).Where("code = ? AND id != ?", code, id).Count(&count).Error
	return count > 0, err
}
