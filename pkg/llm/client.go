// Package llm provides a client for interacting with Large Language Models
// over an OpenAI-compatible chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rehber-go/internal/config"
)

// Message 表示一条角色消息。tool 角色消息通过 Name/ToolCallID 关联到触发它的调用。
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall 表示模型请求的一次工具调用，跨新旧两种响应形态统一。
type ToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction 描述工具调用的目标函数与 JSON 字符串形式的参数。
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition 向模型声明一个可调用的函数。
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition 描述单个函数的名称、说明与 JSON Schema 参数。
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// OutcomeKind 标记一次模型响应的工具调用形态。
type OutcomeKind int

const (
	OutcomeNoCall OutcomeKind = iota
	OutcomeSingleCall
	OutcomeMultipleCalls
)

// ToolOutcome 统一了历史上两种分叉的响应形态：
// 旧式单个 function_call 与新式 tool_calls 列表都归一到这里。
type ToolOutcome struct {
	Kind  OutcomeKind
	Calls []ToolCall
}

// Requested 报告模型是否请求了至少一次工具调用。
func (o ToolOutcome) Requested() bool {
	return o.Kind != OutcomeNoCall
}

// Usage 记录一次调用的 token 消耗。
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result 是一次非流式聊天调用的结果。
// Message 保留了原始 assistant 消息，供工具回环的 follow-up 调用拼接上下文。
type Result struct {
	Text    string
	Outcome ToolOutcome
	Message Message
	Usage   Usage
}

// GenerationParams 控制生成行为。
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// ChatOptions 控制单次调用的模型与工具绑定。
type ChatOptions struct {
	// Model 覆盖默认模型（例如摘要/标题用 mini 模型），为空使用配置默认。
	Model string
	// Tools 非空时以 function calling 模式调用。
	Tools []ToolDefinition
	// Generation 覆盖配置中的生成参数。
	Generation *GenerationParams
}

// Client defines the interface for an LLM client.
type Client interface {
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Result, error)
}

type openAICompatibleClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new LLM client from the configuration.
func NewClient(cfg config.LLMConfig) Client {
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Stream      bool             `json:"stream"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	TopP        *float64         `json:"top_p,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
}

// legacyFunctionCall 兼容旧式响应中的单个 function_call 字段。
type legacyFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role         string              `json:"role"`
			Content      string              `json:"content"`
			ToolCalls    []ToolCall          `json:"tool_calls"`
			FunctionCall *legacyFunctionCall `json:"function_call"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Chat 发起一次非流式聊天调用，必要时绑定工具。
func (c *openAICompatibleClient) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Result, error) {
	if opts == nil {
		opts = &ChatOptions{}
	}
	model := opts.Model
	if model == "" {
		model = c.cfg.Model
	}

	reqBody := chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}
	if len(opts.Tools) > 0 {
		reqBody.Tools = opts.Tools
		reqBody.ToolChoice = "auto"
	}
	c.applyGeneration(&reqBody, opts.Generation)

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("chat api returned no choices")
	}

	msg := chatResp.Choices[0].Message
	result := &Result{
		Text:  strings.TrimSpace(msg.Content),
		Usage: chatResp.Usage,
		Message: Message{
			Role:      msg.Role,
			Content:   msg.Content,
			ToolCalls: msg.ToolCalls,
		},
	}
	result.Outcome = resolveOutcome(msg.ToolCalls, msg.FunctionCall)
	return result, nil
}

// applyGeneration 注入生成参数：传参优先，其次取配置中的非零值。
func (c *openAICompatibleClient) applyGeneration(req *chatRequest, gen *GenerationParams) {
	if gen != nil {
		req.Temperature = gen.Temperature
		req.TopP = gen.TopP
		req.MaxTokens = gen.MaxTokens
		return
	}
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		req.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		req.TopP = &p
	}
	if c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		req.MaxTokens = &m
	}
}

// resolveOutcome 将两种工具调用响应形态归一为 ToolOutcome。
func resolveOutcome(toolCalls []ToolCall, legacy *legacyFunctionCall) ToolOutcome {
	if len(toolCalls) == 0 && legacy != nil {
		return ToolOutcome{
			Kind: OutcomeSingleCall,
			Calls: []ToolCall{{
				Type:     "function",
				Function: ToolCallFunction{Name: legacy.Name, Arguments: legacy.Arguments},
			}},
		}
	}
	switch len(toolCalls) {
	case 0:
		return ToolOutcome{Kind: OutcomeNoCall}
	case 1:
		return ToolOutcome{Kind: OutcomeSingleCall, Calls: toolCalls}
	default:
		return ToolOutcome{Kind: OutcomeMultipleCalls, Calls: toolCalls}
	}
}
