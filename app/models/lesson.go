package models

import (
	"time"
)

type Lesson struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CourseID     uint      `gorm:"index;not null" json:"course_id" validate:"required"`
	Course       *Course   `gorm:"foreignKey:CourseID" json:"-" validate:"-"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name" form:"name" validate:"required,max=255"`
	Content      string    `gorm:"type:text;not null" json:"content" form:"content" validate:"required"`
	SerialNumber int       `gorm:"not null" json:"serial_number" form:"serial_number" validate:"required,min=1,max=10000"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Lesson) TableName() string {
	return "lessons"
}
