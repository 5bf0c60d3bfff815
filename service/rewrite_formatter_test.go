package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/finscn/domain"
)

func sampleResponse() *domain.RewriteResponse {
	return &domain.RewriteResponse{
		Mode: domain.RewriteModeRewrite,
		Methods: []domain.MethodResult{
			{
				File: "a.yaml", Owner: "com/example/Sample", Name: "run", Desc: "()V", Changed: true,
				Tries: []domain.TryUnitInfo{{
					Try:     domain.ScopeInfo{Blocks: []domain.BlockInfo{{Start: 0, End: 1}}},
					Catches: []domain.ScopeInfo{{Blocks: []domain.BlockInfo{{Start: 2, End: 6}}, Nested: []domain.TryUnitInfo{{
						Try:     domain.ScopeInfo{Blocks: []domain.BlockInfo{{Start: 3, End: 4}}},
						Finally: domain.ScopeInfo{Blocks: []domain.BlockInfo{{Start: 5, End: 6}}},
					}}}},
					Finally: domain.ScopeInfo{Blocks: []domain.BlockInfo{{Start: 7, End: 8}}},
				}},
				Sites: []domain.SiteInfo{
					{Call: "hasThrownException", Exit: "throw", Region: domain.BlockInfo{Start: 7, End: 8}, Slot: 3, Replacement: "iconst_1"},
					{Call: "returnedValueLong", Exit: "return", Region: domain.BlockInfo{Start: 1, End: 2}, Slot: 1, Replacement: "new java/lang/ClassCastException", TypeMismatch: true},
				},
			},
			{File: "a.yaml", Owner: "com/example/Sample", Name: "plain", Desc: "()I"},
			{File: "a.yaml", Owner: "com/example/Sample", Name: "bad", Desc: "()V", Error: "[STRUCTURAL_ERROR] cannot rewrite com/example/Sample.bad()V: boom"},
		},
		Summary: domain.RewriteSummary{
			FilesProcessed: 1, MethodsProcessed: 3, MethodsChanged: 1, MethodsFailed: 1,
			TryUnits: 2, SitesRewritten: 2, ReturnExitSites: 1, ThrowExitSites: 1, TypeMismatchSites: 1,
		},
		Errors:      []string{"a.yaml: [STRUCTURAL_ERROR] cannot rewrite com/example/Sample.bad()V: boom"},
		GeneratedAt: "2026-01-01T00:00:00Z",
		Version:     "dev",
	}
}

func withoutColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestRewriteFormatter_Text(t *testing.T) {
	withoutColor(t)

	out, err := NewRewriteFormatter().Format(sampleResponse(), domain.OutputFormatText)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Finally Rewrite Report\n"))
	assert.Contains(t, out, "Methods changed:")
	assert.Contains(t, out, "2 (return 1, throw 1)")
	assert.Contains(t, out, "com/example/Sample.run()V [changed] a.yaml")
	assert.Contains(t, out, "    try [0,1) catch [2,6) finally [7,8)\n      try [3,4) finally [5,6)\n")
	assert.Contains(t, out, "throw  hasThrownException slot 3 in [7,8) -> iconst_1")
	assert.Contains(t, out, "returnedValueLong (type mismatch)")
	assert.Contains(t, out, "com/example/Sample.bad()V [failed]")
	assert.NotContains(t, out, "Sample.plain")
	assert.Contains(t, out, "ERRORS")
}

func TestRewriteFormatter_TextInspect(t *testing.T) {
	withoutColor(t)
	response := sampleResponse()
	response.Mode = domain.RewriteModeInspect

	out, err := NewRewriteFormatter().Format(response, domain.OutputFormatText)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Try/Catch/Finally Structure\n"))
	assert.NotContains(t, out, "Methods changed:")
	assert.NotContains(t, out, "Marker calls rewritten:")
}

func TestRewriteFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRewriteFormatter().Write(sampleResponse(), domain.OutputFormatJSON, &buf))

	var decoded domain.RewriteResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *sampleResponse(), decoded)
	assert.Contains(t, buf.String(), `"type_mismatch": true`)
}

func TestRewriteFormatter_YAML(t *testing.T) {
	out, err := NewRewriteFormatter().Format(sampleResponse(), domain.OutputFormatYAML)
	require.NoError(t, err)

	var decoded domain.RewriteResponse
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, sampleResponse().Summary, decoded.Summary)
	assert.Contains(t, out, "methods_changed: 1")
}

func TestRewriteFormatter_UnsupportedFormat(t *testing.T) {
	_, err := NewRewriteFormatter().Format(sampleResponse(), domain.OutputFormat("html"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format: html")
}

func TestDescribeTries_Empty(t *testing.T) {
	assert.Equal(t, "", DescribeTries(nil))
}
