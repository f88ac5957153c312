package model

import "time"

// TurnRecord 对应数据库中的 'chat_history' 表，按轮次记录一次完整的问答审计信息。
type TurnRecord struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID         string    `gorm:"type:varchar(128);not null;index:idx_history_scope" json:"tenantId"`
	ProfileKey       string    `gorm:"type:varchar(64);not null;index:idx_history_scope" json:"profileKey"`
	UserID           string    `gorm:"type:varchar(128);not null" json:"userId"`
	SessionID        string    `gorm:"type:char(36);not null;index" json:"sessionId"`
	RequestID        string    `gorm:"type:varchar(128);not null" json:"requestId"`
	IP               string    `gorm:"type:varchar(64);not null" json:"ip"`
	UserAgent        string    `gorm:"type:varchar(200);not null" json:"userAgent"`
	Model            *string   `gorm:"type:varchar(128)" json:"model"`
	Question         string    `gorm:"type:text;not null" json:"question"`
	Answer           string    `gorm:"type:text;not null" json:"answer"`
	LatencyMs        int       `gorm:"not null;default:0" json:"latencyMs"`
	PromptTokens     int       `gorm:"not null;default:0" json:"promptTokens"`
	CompletionTokens int       `gorm:"not null;default:0" json:"completionTokens"`
	TotalTokens      int       `gorm:"not null;default:0" json:"totalTokens"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (TurnRecord) TableName() string {
	return "chat_history"
}
