package tools

import (
	"context"
	"errors"
	"testing"

	"rehber-go/internal/tenant"
	"rehber-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct {
	name string
}

func (e *echoTool) Name() string { return e.name }

func (e *echoTool) Definition(setting tenant.ToolSetting) llm.ToolDefinition {
	return llm.ToolDefinition{
		Type:     "function",
		Function: llm.FunctionDefinition{Name: e.name, Description: setting.Description},
	}
}

func (e *echoTool) Execute(ctx context.Context, tc ToolContext, arguments string) (string, error) {
	return arguments, nil
}

func profileWith(settings ...tenant.ToolSetting) tenant.Profile {
	return tenant.Profile{Key: "ogrenci", Tools: settings}
}

func TestSpecsFilteredByProfile(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoTool{name: "a"})
	r.Register(&echoTool{name: "b"})
	r.Register(&echoTool{name: "c"})

	profile := profileWith(
		tenant.ToolSetting{Name: "a", Enabled: true, Description: "ilk arac"},
		tenant.ToolSetting{Name: "b", Enabled: false},
	)

	specs := r.Specs(profile)
	require.Len(t, specs, 1)
	assert.Equal(t, "a", specs[0].Function.Name)
	assert.Equal(t, "ilk arac", specs[0].Function.Description)
}

func TestSpecsEmptyWhenNothingEnabled(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoTool{name: "a"})

	assert.Nil(t, r.Specs(profileWith()))
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()

	_, err := r.Execute(context.Background(), profileWith(), ToolContext{}, "yok", "{}")

	var unknown *ErrUnknownTool
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "yok", unknown.Name)
}

func TestExecuteDisabledTool(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoTool{name: "a"})

	_, err := r.Execute(context.Background(), profileWith(tenant.ToolSetting{Name: "a", Enabled: false}), ToolContext{}, "a", "{}")

	var disabled *ErrToolDisabled
	assert.True(t, errors.As(err, &disabled))
}

func TestExecutePassesArguments(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoTool{name: "a"})

	out, err := r.Execute(context.Background(), profileWith(tenant.ToolSetting{Name: "a", Enabled: true}), ToolContext{}, "a", `{"x":1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, out)
}
