// Package tools 实现了模型可调用的工具及其注册表。
package tools

import (
	"context"
	"fmt"

	"rehber-go/internal/tenant"
	"rehber-go/pkg/llm"
)

// ToolContext 携带一次工具执行所需的请求作用域信息。
type ToolContext struct {
	TenantID   string
	ProfileKey string
	UserID     string
	SessionID  string
}

// Tool 是单个可调用工具的抽象。Execute 返回给模型的 JSON 字符串。
type Tool interface {
	Name() string
	Definition(setting tenant.ToolSetting) llm.ToolDefinition
	Execute(ctx context.Context, tc ToolContext, arguments string) (string, error)
}

// ErrUnknownTool 表示模型请求了未注册的工具名。
type ErrUnknownTool struct {
	Name string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// ErrToolDisabled 表示工具已注册但未对当前画像启用。
type ErrToolDisabled struct {
	Name string
}

func (e *ErrToolDisabled) Error() string {
	return fmt.Sprintf("tool disabled for profile: %s", e.Name)
}

// ErrInvalidArguments 表示模型给出的工具参数无法解析。
type ErrInvalidArguments struct {
	Name string
	Err  error
}

func (e *ErrInvalidArguments) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %v", e.Name, e.Err)
}

func (e *ErrInvalidArguments) Unwrap() error { return e.Err }

// Registry 维护已注册的工具，按租户画像的开关裁剪可见集合。
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry 创建一个空的工具注册表。
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register 注册一个工具，重名时后注册的覆盖先注册的。
func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name()]; !ok {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Specs 返回画像启用的工具定义，按注册顺序排列。
// 画像未启用任何已注册工具时返回 nil，模型走纯问答路径。
func (r *Registry) Specs(profile tenant.Profile) []llm.ToolDefinition {
	var defs []llm.ToolDefinition
	for _, name := range r.order {
		setting := profile.FindTool(name)
		if setting == nil || !setting.Enabled {
			continue
		}
		defs = append(defs, r.tools[name].Definition(*setting))
	}
	return defs
}

// Execute 执行模型请求的工具调用。未注册或未对画像启用的工具名
// 返回类型化错误，由上层转换为用户可见的提示文案。
func (r *Registry) Execute(ctx context.Context, profile tenant.Profile, tc ToolContext, name, arguments string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", &ErrUnknownTool{Name: name}
	}
	if setting := profile.FindTool(name); setting == nil || !setting.Enabled {
		return "", &ErrToolDisabled{Name: name}
	}
	out, err := t.Execute(ctx, tc, arguments)
	if err != nil {
		return "", fmt.Errorf("execute tool %s: %w", name, err)
	}
	return out, nil
}
