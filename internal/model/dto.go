package model

// TurnRequest 是一次问答请求的入参。
type TurnRequest struct {
	Question  string `json:"question" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id"`
	RequestID string `json:"request_id"`
}

// Attachment 描述答案附带的单个文件。
// URL 为预签名下载链接；当工具只内联了编码后的内容时，Payload 携带 base64 数据。
type Attachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Encoding    string `json:"encoding,omitempty"`
	URL         string `json:"url,omitempty"`
	Payload     string `json:"payload,omitempty"`
}

// AnswerResult 是答案管线的产出：正文与至多一个附件。
type AnswerResult struct {
	Text       string
	Attachment *Attachment
	// Usage 为两次 LLM 调用的累计 token 消耗。
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TurnResponse 是一次问答请求的出参。
type TurnResponse struct {
	Answer       string      `json:"answer"`
	Status       string      `json:"status"`
	File         *Attachment `json:"file,omitempty"`
	TenantID     string      `json:"tenant_id"`
	SessionID    string      `json:"session_id"`
	SessionTitle string      `json:"session_title"`
	LastActivity string      `json:"last_activity"`
	Preview      string      `json:"preview"`
	MessageID    string      `json:"message_id"`
}

// SessionSummary 是会话列表条目。
type SessionSummary struct {
	SessionID    string  `json:"session_id"`
	Title        *string `json:"title"`
	StartedAt    string  `json:"started_at"`
	LastActivity string  `json:"last_activity"`
	Preview      string  `json:"preview"`
	TitleLocked  bool    `json:"title_locked"`
}

// MessageView 是会话消息记录条目。
type MessageView struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// FeedbackRequest 是消息反馈的入参，score 取值 1..5。
type FeedbackRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	Score     int    `json:"score" binding:"required"`
}

// DownloadEntry 是临时下载文件的描述符，存放于 Redis 并带 TTL。
type DownloadEntry struct {
	ObjectKey   string `json:"object_key"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}
