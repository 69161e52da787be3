package types

import (
	"gorm.io/gorm"
)

// User is the personalization identity. Identifier is whatever the frontend
// sends (usually an email); at most one row exists per identifier.
type User struct {
	gorm.Model
	Identifier string `gorm:"uniqueIndex;not null;column:identifier" json:"identifier"`
}

func (User) TableName() string {
	return "user"
}
