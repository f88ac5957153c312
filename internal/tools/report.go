package tools

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rehber-go/internal/model"
	"rehber-go/internal/repository"
	"rehber-go/internal/tenant"
	"rehber-go/pkg/llm"
	"rehber-go/pkg/storage"

	"github.com/google/uuid"
)

const reportMaxRows = 200

// ReportTool 把用户最近的问答记录导出为 CSV 文件，
// 上传至对象存储后生成带 TTL 的下载凭据。
type ReportTool struct {
	historyRepo  repository.HistoryRepository
	downloadRepo repository.DownloadRepository
	publicBase   string
	ttl          time.Duration
	now          func() time.Time
}

// NewReportTool 创建 report_export 工具。
func NewReportTool(historyRepo repository.HistoryRepository, downloadRepo repository.DownloadRepository, publicBase string, ttl time.Duration) *ReportTool {
	return &ReportTool{
		historyRepo:  historyRepo,
		downloadRepo: downloadRepo,
		publicBase:   strings.TrimRight(publicBase, "/"),
		ttl:          ttl,
		now:          time.Now,
	}
}

func (t *ReportTool) Name() string {
	return "report_export"
}

func (t *ReportTool) Definition(setting tenant.ToolSetting) llm.ToolDefinition {
	desc := setting.Description
	if desc == "" {
		desc = "Exports the user's recent conversation history as a downloadable CSV report."
	}
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDefinition{
			Name:        t.Name(),
			Description: desc,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of turns to include, defaults to 50.",
					},
				},
			},
		},
	}
}

type reportArgs struct {
	Limit int `json:"limit"`
}

func (t *ReportTool) Execute(ctx context.Context, tc ToolContext, arguments string) (string, error) {
	var args reportArgs
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", &ErrInvalidArguments{Name: t.Name(), Err: err}
		}
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > reportMaxRows {
		limit = reportMaxRows
	}

	records, err := t.historyRepo.RecentForUser(ctx, tc.TenantID, tc.ProfileKey, tc.UserID, limit)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	content, err := renderCSV(records)
	if err != nil {
		return "", err
	}

	fileName := fmt.Sprintf("rapor_%s_%s.csv", t.now().Format("20060102"), uuid.NewString()[:8])
	objectKey := fmt.Sprintf("reports/%s/%s", tc.TenantID, fileName)
	if err := storage.PutObject(ctx, objectKey, content, "text/csv"); err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}

	entry := model.DownloadEntry{
		ObjectKey:   objectKey,
		FileName:    fileName,
		ContentType: "text/csv",
	}
	if err := t.downloadRepo.Save(ctx, fileName, entry, t.ttl); err != nil {
		return "", fmt.Errorf("save download entry: %w", err)
	}

	out, err := json.Marshal(map[string]interface{}{
		"row_count": len(records),
		"download": map[string]string{
			"url":          t.publicBase + "/downloads/" + fileName,
			"file_name":    fileName,
			"content_type": "text/csv",
		},
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func renderCSV(records []model.TurnRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"tarih", "soru", "cevap", "model", "gecikme_ms"}); err != nil {
		return nil, err
	}
	// 记录按时间倒序取出，导出时翻转为正序。
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		modelName := ""
		if rec.Model != nil {
			modelName = *rec.Model
		}
		row := []string{
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.Question,
			rec.Answer,
			modelName,
			strconv.Itoa(rec.LatencyMs),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
