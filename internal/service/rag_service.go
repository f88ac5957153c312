package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"rehber-go/internal/config"
	"rehber-go/internal/model"
	"rehber-go/internal/tenant"
	"rehber-go/internal/tools"
	"rehber-go/pkg/llm"
	"rehber-go/pkg/log"

	"github.com/tidwall/gjson"
)

// FallbackAnswer 是检索不到任何相关内容时返回的固定答复，不消耗模型调用。
const FallbackAnswer = "Ne demek istediginizi anlayamadim. Lutfen sorunuzu farkli bir sekilde ifade eder misiniz?"

// defaultPromptTemplates 是各画像未配置提示词模板时的缺省值。
var defaultPromptTemplates = map[string]string{
	"ogrenci":  "Sen ogrencilere yardimci olan bir okul rehberisin. Sadece verilen bilgilere dayanarak, samimi ve anlasilir bir dille cevap ver.\n\n{memory}\n\nBilgiler:\n{context}\n\nSoru: {question}",
	"ogretmen": "Sen ogretmenlere destek veren bir okul asistanisin. Sadece verilen bilgilere dayanarak, profesyonel bir dille cevap ver.\n\n{memory}\n\nBilgiler:\n{context}\n\nSoru: {question}",
	"yonetici": "Sen okul yoneticilerine rapor ve bilgi sunan bir asistansin. Sadece verilen bilgilere dayanarak, net ve ozet bir dille cevap ver.\n\n{memory}\n\nBilgiler:\n{context}\n\nSoru: {question}",
}

const genericPromptTemplate = "Sen bir okul rehberlik asistanisin. Sadece verilen bilgilere dayanarak cevap ver.\n\n{memory}\n\nBilgiler:\n{context}\n\nSoru: {question}"

// AnswerInput 是一次答案生成所需的请求作用域与文本输入。
type AnswerInput struct {
	TenantID   string
	ProfileKey string
	UserID     string
	SessionID  string
	Question   string
	Memory     string
}

// RAGService 组合检索、提示词渲染、模型调用与工具执行生成最终答案。
// 每轮问答至多两次模型调用：首轮带工具定义，工具执行后的收尾轮不再带。
type RAGService interface {
	Answer(ctx context.Context, profile tenant.Profile, in AnswerInput) (*model.AnswerResult, error)
}

type ragService struct {
	retriever  Retriever
	llmClient  llm.Client
	registry   *tools.Registry
	model      string
	generation *llm.GenerationParams
	publicBase string
}

// NewRAGService 创建一个新的 RAGService 实例。
func NewRAGService(retriever Retriever, llmClient llm.Client, registry *tools.Registry) RAGService {
	genCfg := config.Conf.LLM.Generation
	gen := &llm.GenerationParams{
		Temperature: &genCfg.Temperature,
		TopP:        &genCfg.TopP,
		MaxTokens:   &genCfg.MaxTokens,
	}
	return &ragService{
		retriever:  retriever,
		llmClient:  llmClient,
		registry:   registry,
		model:      config.Conf.LLM.Model,
		generation: gen,
		publicBase: strings.TrimRight(config.Conf.Server.PublicBaseURL, "/"),
	}
}

func (s *ragService) Answer(ctx context.Context, profile tenant.Profile, in AnswerInput) (*model.AnswerResult, error) {
	contextText, err := s.retriever.Retrieve(ctx, in.TenantID, in.ProfileKey, profile.VectorCollection, in.Question)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	if strings.TrimSpace(contextText) == "" {
		return &model.AnswerResult{Text: FallbackAnswer}, nil
	}

	prompt := renderPrompt(profile, in.Memory, contextText, in.Question)
	messages := []llm.Message{{Role: "user", Content: prompt}}

	result := &model.AnswerResult{}
	opts := &llm.ChatOptions{
		Model:      s.model,
		Generation: s.generation,
		Tools:      s.registry.Specs(profile),
	}

	first, err := s.llmClient.Chat(ctx, messages, opts)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	accumulateUsage(result, first.Usage)

	if !first.Outcome.Requested() {
		result.Text = s.normalizeLinks(first.Text)
		result.Attachment = s.attachmentFromLink(result.Text)
		return result, nil
	}

	messages = append(messages, first.Message)
	var lastToolOutput string
	tc := tools.ToolContext{
		TenantID:   in.TenantID,
		ProfileKey: in.ProfileKey,
		UserID:     in.UserID,
		SessionID:  in.SessionID,
	}
	for _, call := range first.Outcome.Calls {
		out, err := s.registry.Execute(ctx, profile, tc, call.Function.Name, call.Function.Arguments)
		if err != nil {
			log.Errorf("工具执行失败: tool=%s err=%v", call.Function.Name, err)
			result.Text = toolFailureText(call.Function.Name, err)
			return result, nil
		}
		lastToolOutput = out
		messages = append(messages, toolResultMessage(call, out))
	}

	// 收尾调用不再携带工具定义，保证一轮问答至多两次模型调用。
	second, err := s.llmClient.Chat(ctx, messages, &llm.ChatOptions{
		Model:      s.model,
		Generation: s.generation,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion after tools: %w", err)
	}
	accumulateUsage(result, second.Usage)

	result.Text = s.normalizeLinks(second.Text)
	result.Attachment = extractAttachment(lastToolOutput)
	if result.Attachment == nil {
		result.Attachment = s.attachmentFromLink(result.Text)
	}
	return result, nil
}

// renderPrompt 渲染画像的提示词模板，未配置时回落到该画像的缺省模板。
func renderPrompt(profile tenant.Profile, memory, contextText, question string) string {
	template := profile.PromptTemplate
	if template == "" {
		var ok bool
		template, ok = defaultPromptTemplates[profile.Key]
		if !ok {
			template = genericPromptTemplate
		}
	}
	return strings.NewReplacer(
		"{memory}", memory,
		"{context}", contextText,
		"{question}", question,
	).Replace(template)
}

func accumulateUsage(result *model.AnswerResult, usage llm.Usage) {
	result.PromptTokens += usage.PromptTokens
	result.CompletionTokens += usage.CompletionTokens
	result.TotalTokens += usage.TotalTokens
}

// toolResultMessage 把工具输出装配为回传给模型的消息。
// 新式调用带 tool_call_id，旧式 function_call 没有 ID，走 function 角色。
func toolResultMessage(call llm.ToolCall, output string) llm.Message {
	if call.ID == "" {
		return llm.Message{Role: "function", Name: call.Function.Name, Content: output}
	}
	return llm.Message{Role: "tool", ToolCallID: call.ID, Name: call.Function.Name, Content: output}
}

// toolFailureText 把工具层错误转换为用户可见的土耳其语提示。
func toolFailureText(name string, err error) string {
	var unknown *tools.ErrUnknownTool
	var disabled *tools.ErrToolDisabled
	var badArgs *tools.ErrInvalidArguments
	switch {
	case errors.As(err, &unknown):
		return fmt.Sprintf("Arac cagrisinda hata olustu: '%s' adinda bir arac bulunamadi.", name)
	case errors.As(err, &disabled):
		return fmt.Sprintf("Arac cagrisinda hata olustu: '%s' araci bu profil icin kullanilamiyor.", name)
	case errors.As(err, &badArgs):
		return fmt.Sprintf("Arac cagrisinda hata olustu: '%s' araci gecersiz parametrelerle cagrildi.", name)
	default:
		return "Arac cagrisinda hata olustu. Lutfen daha sonra tekrar deneyin."
	}
}

// extractAttachment 从最后一个工具输出中解析下载描述符。
// 优先使用 URL；只有内联内容时携带 payload 与编码。
func extractAttachment(toolOutput string) *model.Attachment {
	if toolOutput == "" || !gjson.Valid(toolOutput) {
		return nil
	}
	dl := gjson.Get(toolOutput, "download")
	if !dl.Exists() {
		dl = gjson.Get(toolOutput, "file")
	}
	if !dl.Exists() {
		return nil
	}

	att := &model.Attachment{
		FileName:    dl.Get("file_name").String(),
		ContentType: dl.Get("content_type").String(),
	}
	if url := dl.Get("url").String(); url != "" {
		att.URL = url
		return att
	}
	if payload := dl.Get("payload").String(); payload != "" {
		att.Payload = payload
		att.Encoding = dl.Get("encoding").String()
		if att.Encoding == "" {
			att.Encoding = "base64"
		}
		return att
	}
	if att.FileName == "" {
		return nil
	}
	return att
}

// attachmentFromLink 从答案文本内嵌的下载链接中提取附件描述。
// 模型可能直接在文本里引用此前生成的报告而不再调用工具。
func (s *ragService) attachmentFromLink(text string) *model.Attachment {
	var fileName string
	if m := downloadURLPattern.FindStringSubmatch(text); m != nil {
		fileName = m[1]
	} else if m := downloadPathPattern.FindStringSubmatch(text); m != nil {
		fileName = m[2]
	}
	if fileName == "" {
		return nil
	}
	return &model.Attachment{
		FileName:    fileName,
		ContentType: attachmentContentType(fileName),
		URL:         s.publicBase + "/downloads/" + fileName,
	}
}

func attachmentContentType(fileName string) string {
	if strings.HasSuffix(fileName, ".csv") {
		return "text/csv"
	}
	return "application/octet-stream"
}

var (
	sandboxLinkPattern  = regexp.MustCompile(`sandbox:/+`)
	downloadURLPattern  = regexp.MustCompile(`https?://[^\s)"']+/downloads/([A-Za-z0-9_.-]+)`)
	downloadPathPattern = regexp.MustCompile(`(^|[\s(])/downloads/([A-Za-z0-9_.-]+)`)
)

// normalizeLinks 把模型文本里的下载链接统一改写到对外地址：
// 去掉 sandbox 路径前缀，预签名地址与裸路径都归一到 {publicBase}/downloads/{file}。
func (s *ragService) normalizeLinks(text string) string {
	out := sandboxLinkPattern.ReplaceAllString(text, "/")
	out = downloadURLPattern.ReplaceAllString(out, s.publicBase+"/downloads/$1")
	out = downloadPathPattern.ReplaceAllString(out, "${1}"+s.publicBase+"/downloads/$2")
	return strings.TrimSpace(out)
}
