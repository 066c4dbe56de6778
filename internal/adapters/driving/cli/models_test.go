package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

func TestModelsCmd_Use(t *testing.T) {
	assert.Equal(t, "models", modelsCmd.Use)
}

func TestModelsCmd_HasSubcommands(t *testing.T) {
	commands := modelsCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "enable")
	assert.Contains(t, commandNames, "disable")
	assert.Contains(t, commandNames, "recommend")
}

func TestModelsCmd_ListOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"models"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "llama3.2")
	assert.Contains(t, out, "general_chat")
	assert.Contains(t, out, "35")
	// llama3.2 has 10 invocations at 90% success and 120ms EWMA latency.
	assert.Contains(t, out, "90%")
	assert.Contains(t, out, "120ms")
	// codellama was never invoked, so its stats columns show dashes.
	assert.Contains(t, out, "codellama")
	assert.Contains(t, out, "-")
}

func TestModelsCmd_ListEmpty(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	modelsService.(*mockModelsService).snapshots = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"models"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No models registered.")
}

func TestModelsEnableCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"models", "enable", "codellama"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Model codellama enabled.")

	mock := modelsService.(*mockModelsService)
	require.Len(t, mock.setCalls, 1)
	assert.Equal(t, setActiveCall{name: "codellama", active: true}, mock.setCalls[0])
}

func TestModelsDisableCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"models", "disable", "llama3.2"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Model llama3.2 disabled.")

	mock := modelsService.(*mockModelsService)
	require.Len(t, mock.setCalls, 1)
	assert.Equal(t, setActiveCall{name: "llama3.2", active: false}, mock.setCalls[0])
}

func TestModelsEnableCmd_NotFound(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	modelsService.(*mockModelsService).err = domain.ErrNotFound

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"models", "enable", "gpt-7"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enable model gpt-7")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestModelsRecommendCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"models", "recommend"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Recommended: llama3.2:1b (ollama, lightweight, cost 10)")

	mock := modelRouter.(*mockModelRouter)
	assert.Equal(t, domain.CategoryGeneralChat, mock.lastCategory)
	assert.Equal(t, 0, mock.lastBudget)
}

func TestModelsRecommendCmd_Flags(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"models", "recommend", "-c", "code_assistance", "-b", "50"})
	defer func() {
		rootCmd.SetArgs(nil)
		recommendCategory = string(domain.CategoryGeneralChat)
		recommendBudget = 0
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	mock := modelRouter.(*mockModelRouter)
	assert.Equal(t, domain.CategoryCodeAssistance, mock.lastCategory)
	assert.Equal(t, 50, mock.lastBudget)
}

func TestModelsRecommendCmd_InvalidCategory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"models", "recommend", "--category", "alchemy"})
	defer func() {
		rootCmd.SetArgs(nil)
		recommendCategory = string(domain.CategoryGeneralChat)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}

func TestModelsRecommendCmd_Exhausted(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	modelRouter.(*mockModelRouter).err = domain.ErrResourceExhausted

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"models", "recommend"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no model available")
	assert.ErrorIs(t, err, domain.ErrResourceExhausted)
}

func TestModelsCmd_ServiceNotConfigured(t *testing.T) {
	oldService := modelsService
	modelsService = nil
	defer func() {
		modelsService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"models"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "models service not configured")
}

func TestModelsRecommendCmd_RouterNotConfigured(t *testing.T) {
	oldRouter := modelRouter
	modelRouter = nil
	defer func() {
		modelRouter = oldRouter
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"models", "recommend"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "model router not configured")
}

func TestSuccessLabel(t *testing.T) {
	assert.Equal(t, "-", successLabel(domain.ModelStats{}))
	assert.Equal(t, "90%", successLabel(domain.ModelStats{SuccessCount: 9, FailureCount: 1}))
	assert.Equal(t, "100%", successLabel(domain.ModelStats{SuccessCount: 4}))
}

func TestLatencyLabel(t *testing.T) {
	assert.Equal(t, "-", latencyLabel(domain.ModelStats{}))
	assert.Equal(t, "120ms", latencyLabel(domain.ModelStats{SuccessCount: 1, LatencyEWMAMs: 120.4}))
}
