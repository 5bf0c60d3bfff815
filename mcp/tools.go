package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers the finscn tools with the server
func RegisterTools(s *server.MCPServer, h *HandlerSet) {
	s.AddTool(mcp.NewTool("rewrite_methods",
		mcp.WithDescription("Rewrite finally marker calls in method files and report every rewritten call with its exit kind"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Method file (YAML or JSON) or directory of method files")),
		mcp.WithString("marker_owner",
			mcp.Description("Internal name of the marker class (default: com/github/ibessonov/finally4j/Finally)")),
		mcp.WithString("marker_version",
			mcp.Enum("v1", "v2"),
			mcp.Description("Marker surface version (default: v2)")),
		mcp.WithString("emit_dir",
			mcp.Description("Write rewritten method files into this directory")),
		mcp.WithBoolean("include_listing",
			mcp.Description("Include the rewritten instruction listing of changed methods (default: false)")),
		mcp.WithBoolean("recursive",
			mcp.Description("Recursively search directories (default: true)")),
		mcp.WithString("output_mode",
			mcp.Enum("summary", "full"),
			mcp.Description("summary: counts and failures; full: every method with its sites (default: summary)")),
	), h.HandleRewriteMethods)

	s.AddTool(mcp.NewTool("inspect_tries",
		mcp.WithDescription("Recover the try/catch/finally tree of every method without modifying it"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Method file (YAML or JSON) or directory of method files")),
		mcp.WithBoolean("include_listing",
			mcp.Description("Include the instruction listing of each method (default: false)")),
		mcp.WithBoolean("recursive",
			mcp.Description("Recursively search directories (default: true)")),
	), h.HandleInspectTries)
}
