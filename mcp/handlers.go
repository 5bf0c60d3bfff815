package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ludo-technologies/finscn/domain"
	"github.com/ludo-technologies/finscn/service"
)

// HandlerSet exposes MCP tool handlers with shared dependencies.
type HandlerSet struct {
	deps *Dependencies
}

// NewHandlerSet constructs a handler set.
func NewHandlerSet(deps *Dependencies) *HandlerSet {
	if deps == nil {
		deps = NewDependencies("")
	}
	return &HandlerSet{deps: deps}
}

// HandleRewriteMethods handles the rewrite_methods tool
func (h *HandlerSet) HandleRewriteMethods(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, req, errResult := h.parseCommon(request, domain.RewriteModeRewrite)
	if errResult != nil {
		return errResult, nil
	}

	if owner, ok := args["marker_owner"].(string); ok && owner != "" {
		req.MarkerOwner = owner
		req.ExplicitFlags[service.FlagMarkerOwner] = true
	}
	if version, ok := args["marker_version"].(string); ok && version != "" {
		req.MarkerVersion = version
		req.ExplicitFlags[service.FlagMarkerVersion] = true
	}
	if dir, ok := args["emit_dir"].(string); ok && dir != "" {
		req.EmitDir = dir
		req.ExplicitFlags[service.FlagEmitDir] = true
	}

	outputMode := "summary"
	if om, ok := args["output_mode"].(string); ok && om != "" {
		outputMode = om
	}

	response, errResult := h.execute(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	var responseData interface{}
	switch outputMode {
	case "full":
		responseData = response
	case "summary":
		responseData = formatRewriteSummary(response)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown output_mode: %s", outputMode)), nil
	}
	return jsonResult(responseData)
}

// HandleInspectTries handles the inspect_tries tool
func (h *HandlerSet) HandleInspectTries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, req, errResult := h.parseCommon(request, domain.RewriteModeInspect)
	if errResult != nil {
		return errResult, nil
	}

	response, errResult := h.execute(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	methods := make([]map[string]interface{}, 0, len(response.Methods))
	for _, m := range response.Methods {
		entry := map[string]interface{}{
			"file":      m.File,
			"signature": m.Signature(),
			"tries":     m.Tries,
			"tree":      service.DescribeTries(m.Tries),
		}
		if m.Listing != "" {
			entry["listing"] = m.Listing
		}
		if m.Error != "" {
			entry["error"] = m.Error
		}
		methods = append(methods, entry)
	}

	return jsonResult(map[string]interface{}{
		"methods":  methods,
		"summary":  response.Summary,
		"warnings": response.Warnings,
		"errors":   response.Errors,
	})
}

// parseCommon reads the arguments every tool shares
func (h *HandlerSet) parseCommon(request mcp.CallToolRequest, mode domain.RewriteMode) (map[string]interface{}, domain.RewriteRequest, *mcp.CallToolResult) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, domain.RewriteRequest{}, mcp.NewToolResultError("invalid arguments format")
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, domain.RewriteRequest{}, mcp.NewToolResultError("path parameter is required and must be a string")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, domain.RewriteRequest{}, mcp.NewToolResultError(fmt.Sprintf("path does not exist: %s", path))
	}

	req := domain.RewriteRequest{
		Paths:         []string{path},
		Mode:          mode,
		ConfigPath:    h.deps.ConfigPath(),
		ExplicitFlags: make(map[string]bool),
	}
	if listing, ok := args["include_listing"].(bool); ok {
		req.ShowListing = listing
		req.ExplicitFlags[service.FlagShowListing] = true
	}
	if recursive, ok := args["recursive"].(bool); ok {
		req.Recursive = domain.BoolPtr(recursive)
		req.ExplicitFlags[service.FlagRecursive] = true
	}
	return args, req, nil
}

func (h *HandlerSet) execute(ctx context.Context, req domain.RewriteRequest) (*domain.RewriteResponse, *mcp.CallToolResult) {
	useCase, err := h.deps.BuildRewriteUseCase()
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("failed to create use case: %v", err))
	}

	response, err := useCase.ExecuteAndReturn(ctx, req)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", req.Mode, err))
	}
	return response, nil
}

// formatRewriteSummary keeps the counts plus every method that changed or failed
func formatRewriteSummary(response *domain.RewriteResponse) map[string]interface{} {
	changed := []string{}
	failed := []map[string]string{}
	for _, m := range response.Methods {
		switch {
		case m.Error != "":
			failed = append(failed, map[string]string{
				"file":      m.File,
				"signature": m.Signature(),
				"error":     m.Error,
			})
		case m.Changed:
			changed = append(changed, m.Signature())
		}
	}

	return map[string]interface{}{
		"summary":         response.Summary,
		"has_failures":    response.HasFailures(),
		"changed_methods": changed,
		"failed_methods":  failed,
		"warnings":        response.Warnings,
		"errors":          response.Errors,
	}
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
