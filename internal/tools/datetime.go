package tools

import (
	"context"
	"encoding/json"
	"time"

	"rehber-go/internal/tenant"
	"rehber-go/pkg/llm"
)

// DatetimeTool 返回当前 UTC 时间，供模型回答与日期相关的问题。
type DatetimeTool struct {
	now func() time.Time
}

// NewDatetimeTool 创建 current_datetime 工具。
func NewDatetimeTool() *DatetimeTool {
	return &DatetimeTool{now: time.Now}
}

func (t *DatetimeTool) Name() string {
	return "current_datetime"
}

func (t *DatetimeTool) Definition(setting tenant.ToolSetting) llm.ToolDefinition {
	desc := setting.Description
	if desc == "" {
		desc = "Returns the current date and time in UTC."
	}
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDefinition{
			Name:        t.Name(),
			Description: desc,
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

func (t *DatetimeTool) Execute(ctx context.Context, tc ToolContext, arguments string) (string, error) {
	now := t.now().UTC()
	out, err := json.Marshal(map[string]string{
		"datetime": now.Format(time.RFC3339),
		"date":     now.Format("2006-01-02"),
		"time":     now.Format("15:04:05"),
		"timezone": "UTC",
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
