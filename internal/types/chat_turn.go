package types

import (
	"gorm.io/gorm"
)

// ChatTurn is one persisted message of a per-user, per-course conversation.
// Rows are append-only; content is capped at MaxTurnContentLen on write.
type ChatTurn struct {
	gorm.Model
	UserID  uint   `gorm:"index:idx_chat_turn_user_course;not null;column:user_id" json:"user_id"`
	User    *User  `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Course  string `gorm:"index:idx_chat_turn_user_course;not null;column:course" json:"course"`
	Role    string `gorm:"not null;column:role" json:"role"`
	Content string `gorm:"type:text;not null;column:content" json:"content"`
}

func (ChatTurn) TableName() string {
	return "chat_turn"
}

const MaxTurnContentLen = 10000
