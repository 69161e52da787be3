package types

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StudyPlan holds one adaptive plan per user as an opaque JSON document.
type StudyPlan struct {
	gorm.Model
	UserID uint           `gorm:"uniqueIndex;not null;column:user_id" json:"user_id"`
	User   *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Plan   datatypes.JSON `gorm:"not null;column:plan" json:"plan"`
}

func (StudyPlan) TableName() string {
	return "study_plan"
}
