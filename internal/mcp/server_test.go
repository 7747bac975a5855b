package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/moolen/kubediagnose/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDiagnoser struct{}

func (stubDiagnoser) DebugPod(_ context.Context, ns, name string) (*models.PodDiagnosticResult, error) {
	return &models.PodDiagnosticResult{Namespace: ns, ResourceName: name, Status: models.StatusHealthy}, nil
}

func (stubDiagnoser) DebugPods(_ context.Context, ns string) (*models.BulkPodDiagnosticResult, error) {
	return &models.BulkPodDiagnosticResult{Namespace: ns}, nil
}

func (stubDiagnoser) DebugService(_ context.Context, ns, name string) (*models.ServiceDiagnosticResult, error) {
	return &models.ServiceDiagnosticResult{Namespace: ns, ResourceName: name}, nil
}

func (stubDiagnoser) DebugServices(_ context.Context, ns string) (*models.BulkServiceDiagnosticResult, error) {
	return &models.BulkServiceDiagnosticResult{Namespace: ns}, nil
}

func (stubDiagnoser) ListNamespaces(context.Context) (*models.NamespaceList, error) {
	return models.NewNamespaceList([]string{"default", "prod"}), nil
}

type mockTool struct {
	result interface{}
	err    error
	input  json.RawMessage
}

func (m *mockTool) Execute(_ context.Context, input json.RawMessage) (interface{}, error) {
	m.input = input
	return m.result, m.err
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestNewDiagnosisServer_RegistersTools(t *testing.T) {
	s := NewDiagnosisServer(stubDiagnoser{}, "1.0.0-test")

	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"debug_pod", "debug_pods", "debug_service", "debug_services", "list_namespaces"}, names)
	assert.NotNil(t, s.MCPServer())
	assert.Equal(t, "1.0.0-test", s.Version())
}

func TestToolHandler_Success(t *testing.T) {
	s := NewDiagnosisServer(stubDiagnoser{}, "test")
	tool := &mockTool{result: map[string]string{"status": "ok"}}

	result, err := s.createToolHandler("mock", tool)(context.Background(), callRequest(map[string]interface{}{"namespace": "default"}))

	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"namespace":"default"}`, string(tool.input))
	assert.Equal(t, "{\n  \"status\": \"ok\"\n}", resultText(t, result))
}

func TestToolHandler_ToolErrorIsResult(t *testing.T) {
	s := NewDiagnosisServer(stubDiagnoser{}, "test")
	tool := &mockTool{err: errors.New("Pod 'web' not found in namespace 'default'")}

	result, err := s.createToolHandler("mock", tool)(context.Background(), callRequest(nil))

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Tool execution failed: Pod 'web' not found in namespace 'default'", resultText(t, result))
}

func TestToolHandler_DiagnosisTool(t *testing.T) {
	s := NewDiagnosisServer(stubDiagnoser{}, "test")

	result, err := s.createToolHandler("list_namespaces", s.tools["list_namespaces"])(context.Background(), callRequest(nil))

	require.NoError(t, err)
	var list models.NamespaceList
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &list))
	assert.Equal(t, 2, list.Total)
}

func TestTriageNamespacePrompt(t *testing.T) {
	s := NewDiagnosisServer(stubDiagnoser{}, "test")

	var req mcp.GetPromptRequest
	req.Params.Arguments = map[string]string{"namespace": "prod", "symptoms": "502 from ingress"}
	result, err := s.triageNamespacePrompt(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	text, ok := result.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `Triage namespace "prod"`)
	assert.Contains(t, text.Text, "debug_pods")
	assert.Contains(t, text.Text, "Reported symptoms: 502 from ingress")

	req.Params.Arguments = map[string]string{}
	_, err = s.triageNamespacePrompt(context.Background(), req)
	assert.Error(t, err)
}
