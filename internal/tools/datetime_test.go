package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"rehber-go/internal/model"
	"rehber-go/internal/tenant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatetimeToolOutput(t *testing.T) {
	tool := NewDatetimeTool()
	tool.now = func() time.Time {
		return time.Date(2025, 6, 1, 15, 30, 45, 0, time.FixedZone("TRT", 3*3600))
	}

	out, err := tool.Execute(context.Background(), ToolContext{}, "")
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	// 输出固定为 UTC
	assert.Equal(t, "2025-06-01T12:30:45Z", payload["datetime"])
	assert.Equal(t, "2025-06-01", payload["date"])
	assert.Equal(t, "12:30:45", payload["time"])
	assert.Equal(t, "UTC", payload["timezone"])
}

func TestDatetimeToolDefinitionUsesProfileDescription(t *testing.T) {
	tool := NewDatetimeTool()

	def := tool.Definition(tenant.ToolSetting{Description: "Guncel tarihi dondurur."})
	assert.Equal(t, "current_datetime", def.Function.Name)
	assert.Equal(t, "Guncel tarihi dondurur.", def.Function.Description)

	def = tool.Definition(tenant.ToolSetting{})
	assert.NotEmpty(t, def.Function.Description)
}

func TestReportToolRejectsMalformedArguments(t *testing.T) {
	tool := NewReportTool(nil, nil, "http://edge.okul.tr", time.Minute)

	_, err := tool.Execute(context.Background(), ToolContext{TenantID: "t1", UserID: "u1"}, `{"limit": abc`)

	var badArgs *ErrInvalidArguments
	require.ErrorAs(t, err, &badArgs)
	assert.Equal(t, "report_export", badArgs.Name)
}

func TestRenderCSV(t *testing.T) {
	modelName := "test-model"
	records := []model.TurnRecord{
		{
			Question:  "Ikinci soru",
			Answer:    "Ikinci cevap",
			Model:     &modelName,
			LatencyMs: 200,
			CreatedAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			Question:  "Ilk soru, virgullu",
			Answer:    "Ilk cevap",
			LatencyMs: 150,
			CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	out, err := renderCSV(records)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "tarih,soru,cevap,model,gecikme_ms", lines[0])
	// 倒序入参，导出按时间正序
	assert.Contains(t, lines[1], "Ilk cevap")
	assert.Contains(t, lines[1], `"Ilk soru, virgullu"`)
	assert.Contains(t, lines[2], "Ikinci cevap")
	assert.Contains(t, lines[2], "test-model")
}
