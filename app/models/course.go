package models

import (
	"time"
)

// Course is the local catalog entry. Price and type live in the billing service.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"code" form:"code" validate:"required,max=255"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name" form:"name" validate:"required,max=255"`
	Description string    `gorm:"type:varchar(1000)" json:"description" form:"description" validate:"max=1000"`
	Lessons     []Lesson  `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lessons,omitempty" validate:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}
