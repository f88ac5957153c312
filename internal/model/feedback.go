package model

import "time"

// ChatFeedback 对应数据库中的 'chat_feedback' 表。
// 每条消息至多一条反馈记录，重复提交按更新处理。
type ChatFeedback struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"feedbackId"`
	TenantID   string    `gorm:"type:varchar(128);not null" json:"tenantId"`
	ProfileKey string    `gorm:"type:varchar(64);not null" json:"profileKey"`
	MessageID  string    `gorm:"type:char(36);not null;uniqueIndex" json:"messageId"`
	Score      int       `gorm:"not null" json:"score"`
	Reason     string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatFeedback) TableName() string {
	return "chat_feedback"
}
