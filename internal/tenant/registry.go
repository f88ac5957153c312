// Package tenant 提供租户与资料卷（profile）配置的不可变注册表。
// 配置在进程启动时加载一次，请求期间以值对象形式向下传递，不做全局查找。
package tenant

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrUnknownTenant 表示请求的租户未注册。
var ErrUnknownTenant = errors.New("unknown tenant")

// ErrUnknownProfile 表示租户未配置请求的 profile。
var ErrUnknownProfile = errors.New("unknown profile")

// ToolSetting 是 profile 下单个工具的开关与配置。
type ToolSetting struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Enabled     bool                   `json:"enabled"`
	Config      map[string]interface{} `json:"config"`
}

// Profile 描述一个资料卷：检索集合、提示词模板与可用工具。
type Profile struct {
	Key              string        `json:"key"`
	DisplayName      string        `json:"display_name"`
	VectorCollection string        `json:"vector_collection"`
	PromptTemplate   string        `json:"prompt_template"`
	SummaryContext   string        `json:"summary_context"`
	Tools            []ToolSetting `json:"tools"`
}

// EnabledTools 返回该 profile 下启用的工具列表。
func (p Profile) EnabledTools() []ToolSetting {
	var enabled []ToolSetting
	for _, t := range p.Tools {
		if t.Enabled {
			enabled = append(enabled, t)
		}
	}
	return enabled
}

// FindTool 按名称查找工具配置，未配置时返回 nil。
func (p Profile) FindTool(name string) *ToolSetting {
	for i := range p.Tools {
		if p.Tools[i].Name == name {
			return &p.Tools[i]
		}
	}
	return nil
}

// Tenant 是单个租户的完整配置。
type Tenant struct {
	TenantID       string             `json:"tenant_id"`
	DefaultProfile string             `json:"default_profile"`
	Profiles       map[string]Profile `json:"profiles"`
}

// Registry 是进程级只读的租户配置集合。
type Registry struct {
	tenants map[string]Tenant
}

// Load 从 JSON 文件加载注册表。文件内容可以是单个租户对象或租户数组。
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取租户注册表失败: %w", err)
	}
	return Parse(raw)
}

// Parse 解析注册表内容。
func Parse(raw []byte) (*Registry, error) {
	var entries []Tenant
	if err := json.Unmarshal(raw, &entries); err != nil {
		var single Tenant
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, fmt.Errorf("解析租户注册表失败: %w", err)
		}
		entries = []Tenant{single}
	}

	tenants := make(map[string]Tenant, len(entries))
	for _, t := range entries {
		if t.TenantID == "" {
			return nil, fmt.Errorf("租户注册表中存在缺少 tenant_id 的条目")
		}
		tenants[t.TenantID] = t
	}
	return &Registry{tenants: tenants}, nil
}

// TenantIDs 返回所有已注册的租户标识。
func (r *Registry) TenantIDs() []string {
	ids := make([]string, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	return ids
}

// Has 报告租户是否已注册。
func (r *Registry) Has(tenantID string) bool {
	_, ok := r.tenants[tenantID]
	return ok
}

// Tenant 返回指定租户的配置。
func (r *Registry) Tenant(tenantID string) (Tenant, error) {
	t, ok := r.tenants[tenantID]
	if !ok {
		return Tenant{}, fmt.Errorf("'%s': %w", tenantID, ErrUnknownTenant)
	}
	return t, nil
}

// Profile 解析 (tenant, profile) 作用域；profileKey 为空时使用租户默认 profile。
func (r *Registry) Profile(tenantID, profileKey string) (Profile, error) {
	t, err := r.Tenant(tenantID)
	if err != nil {
		return Profile{}, err
	}
	if profileKey == "" {
		profileKey = t.DefaultProfile
	}
	p, ok := t.Profiles[profileKey]
	if !ok {
		return Profile{}, fmt.Errorf("'%s/%s': %w", tenantID, profileKey, ErrUnknownProfile)
	}
	if p.Key == "" {
		p.Key = profileKey
	}
	return p, nil
}
