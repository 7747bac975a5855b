package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/moolen/kubediagnose/internal/logging"
	"github.com/moolen/kubediagnose/internal/mcp/tools"
)

// ServerName is advertised to MCP clients during initialization
const ServerName = "KubeDiagnose MCP Server"

// Tool is implemented by every diagnosis tool
type Tool interface {
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

// DiagnosisServer wraps an mcp-go server exposing the diagnosis tools
type DiagnosisServer struct {
	mcpServer *server.MCPServer
	tools     map[string]Tool
	version   string
	logger    *logging.Logger
}

// NewDiagnosisServer creates the MCP server. The diagnoser is called
// directly; no HTTP round trip is involved.
func NewDiagnosisServer(diagnoser tools.Diagnoser, version string) *DiagnosisServer {
	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
	)

	s := &DiagnosisServer{
		mcpServer: mcpServer,
		tools:     make(map[string]Tool),
		version:   version,
		logger:    logging.GetLogger("mcp"),
	}

	s.registerTools(diagnoser)
	s.registerPrompts()
	return s
}

func namespaceProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Kubernetes namespace",
	}
}

func (s *DiagnosisServer) registerTools(diagnoser tools.Diagnoser) {
	s.registerTool(
		"debug_pod",
		"Diagnose a single pod: container states, restarts, crash loops, image pull and OOM failures, failing probes",
		tools.NewDebugPodTool(diagnoser),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"namespace": namespaceProperty(),
				"pod_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the pod to diagnose",
				},
			},
			"required": []string{"namespace", "pod_name"},
		},
	)

	s.registerTool(
		"debug_pods",
		"Diagnose every pod in a namespace; results are ordered by severity with critical pods first",
		tools.NewDebugPodsTool(diagnoser),
		map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"namespace": namespaceProperty()},
			"required":   []string{"namespace"},
		},
	)

	s.registerTool(
		"debug_service",
		"Diagnose a single service: selector matches, endpoints, port mapping and CoreDNS availability",
		tools.NewDebugServiceTool(diagnoser),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"namespace": namespaceProperty(),
				"service_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the service to diagnose",
				},
			},
			"required": []string{"namespace", "service_name"},
		},
	)

	s.registerTool(
		"debug_services",
		"Diagnose every service in a namespace; results are ordered by severity with critical services first",
		tools.NewDebugServicesTool(diagnoser),
		map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"namespace": namespaceProperty()},
			"required":   []string{"namespace"},
		},
	)

	s.registerTool(
		"list_namespaces",
		"List the namespaces in the cluster",
		tools.NewListNamespacesTool(diagnoser),
		map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	)
}

func (s *DiagnosisServer) registerTool(name, description string, tool Tool, inputSchema map[string]interface{}) {
	s.tools[name] = tool

	schemaJSON, err := json.Marshal(inputSchema)
	if err != nil {
		// This should never happen with well-formed schemas
		panic(fmt.Sprintf("Failed to marshal schema for tool %s: %v", name, err))
	}

	mcpTool := mcp.NewToolWithRawSchema(name, description, schemaJSON)
	s.mcpServer.AddTool(mcpTool, s.createToolHandler(name, tool))
}

func (s *DiagnosisServer) createToolHandler(name string, tool Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		s.logger.Debug("Executing tool %s with %s", name, args)
		result, err := tool.Execute(ctx, args)
		if err != nil {
			s.logger.Warn("Tool %s failed: %v", name, err)
			return mcp.NewToolResultError(fmt.Sprintf("Tool execution failed: %v", err)), nil
		}

		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func (s *DiagnosisServer) registerPrompts() {
	triage := mcp.Prompt{
		Name:        "triage_namespace",
		Description: "Triage the workloads of a namespace and explain the most severe problems",
		Arguments: []mcp.PromptArgument{
			{Name: "namespace", Description: "Kubernetes namespace to triage", Required: true},
			{Name: "symptoms", Description: "Optional description of what users observe", Required: false},
		},
	}
	s.mcpServer.AddPrompt(triage, s.triageNamespacePrompt)
}

func (s *DiagnosisServer) triageNamespacePrompt(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	namespace := request.Params.Arguments["namespace"]
	if namespace == "" {
		return nil, fmt.Errorf("namespace argument is required")
	}

	text := fmt.Sprintf("Triage namespace %q. Call debug_pods and debug_services for the namespace. "+
		"Critical results are listed first; for each critical or warning resource call debug_pod or debug_service "+
		"and summarize the probable causes and the suggested actions.", namespace)
	if symptoms := request.Params.Arguments["symptoms"]; symptoms != "" {
		text += fmt.Sprintf(" Reported symptoms: %s", symptoms)
	}

	return &mcp.GetPromptResult{
		Description: "Namespace triage workflow",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}, nil
}

// MCPServer returns the underlying mcp-go server for mounting on a transport
func (s *DiagnosisServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Version returns the advertised server version
func (s *DiagnosisServer) Version() string {
	return s.version
}
