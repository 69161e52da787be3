package types

import (
	"gorm.io/gorm"
)

// Mistake is a recorded weak spot for weekly review. Created by explicit
// user action; the chat pipeline only ever reads these.
type Mistake struct {
	gorm.Model
	UserID     uint   `gorm:"index:idx_mistake_user_course;not null;column:user_id" json:"user_id"`
	User       *User  `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Course     string `gorm:"index:idx_mistake_user_course;not null;column:course" json:"course"`
	Topic      string `gorm:"column:topic" json:"topic"`
	Question   string `gorm:"type:text;column:question" json:"question"`
	Correction string `gorm:"type:text;column:correction" json:"correction"`
}

func (Mistake) TableName() string {
	return "mistake"
}

const MaxMistakeFieldLen = 2000
