package model

import "time"

// 消息角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 对应数据库中的 'chat_messages' 表。消息一经写入不可变更。
type ChatMessage struct {
	ID         string  `gorm:"type:char(36);primaryKey" json:"messageId"`
	TenantID   string  `gorm:"type:varchar(128);not null;index:idx_messages_scope" json:"tenantId"`
	ProfileKey string  `gorm:"type:varchar(64);not null;index:idx_messages_scope" json:"profileKey"`
	SessionID  string  `gorm:"type:char(36);not null;index" json:"sessionId"`
	Role       string  `gorm:"type:varchar(16);not null" json:"role"`
	Content    string  `gorm:"type:text;not null" json:"content"`
	Model      *string `gorm:"type:varchar(128)" json:"model"`
	LatencyMs  int     `gorm:"not null;default:0" json:"latencyMs"`
	// token 统计来自 LLM 响应的 usage 字段，无响应时保持为 0。
	PromptTokens     int       `gorm:"not null;default:0" json:"promptTokens"`
	CompletionTokens int       `gorm:"not null;default:0" json:"completionTokens"`
	TotalTokens      int       `gorm:"not null;default:0" json:"totalTokens"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatMessage) TableName() string {
	return "chat_messages"
}
