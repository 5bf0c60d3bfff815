package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/finscn/domain"
	"github.com/ludo-technologies/finscn/internal/marker"
)

const throwingMethodCode = `L0:
  new java/lang/IllegalStateException
  dup
  invokespecial java/lang/IllegalStateException.<init> ()V
  athrow
L1:
  astore 1
  invokestatic Finally.hasThrownException ()Z
  ifeq L2
  invokestatic Finally.thrownException ()Ljava/lang/Throwable;
  invokestatic com/example/Sample.report (Ljava/lang/Throwable;)V
L2:
  invokestatic Finally.hasReturnedValue ()Z
  pop
  aload 1
  athrow
`

const brokenMethodCode = `L0:
  invokestatic Finally.hasReturnedValue ()Z
  pop
L1:
  pop
  return
`

const plainMethodCode = `L0:
  iconst_1
  ireturn
`

// methodYAML renders one method entry of a method file.
func methodYAML(name, desc, code string, tryCatch ...string) string {
	var b strings.Builder
	b.WriteString("  - owner: com/example/Sample\n")
	b.WriteString("    name: " + name + "\n")
	b.WriteString("    desc: " + desc + "\n")
	b.WriteString("    code: |\n")
	code = strings.ReplaceAll(code, "Finally.", marker.DefaultOwner+".")
	for _, line := range strings.Split(strings.TrimRight(code, "\n"), "\n") {
		b.WriteString("      " + line + "\n")
	}
	if len(tryCatch) > 0 {
		b.WriteString("    try_catch:\n")
		for _, tc := range tryCatch {
			b.WriteString("      - " + tc + "\n")
		}
	}
	return b.String()
}

func writeMethodFile(t *testing.T, dir, name string, methods ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := "methods:\n" + strings.Join(methods, "")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sampleFile(t *testing.T, dir string) string {
	return writeMethodFile(t, dir, "sample.yaml",
		methodYAML("throwing", "()V", throwingMethodCode, "{start: L0, end: L1, handler: L1}"),
		methodYAML("broken", "()V", brokenMethodCode, "{start: L0, end: L1, handler: L1}"),
		methodYAML("plain", "()I", plainMethodCode),
	)
}

func TestRewriteService_Rewrite(t *testing.T) {
	dir := t.TempDir()
	path := sampleFile(t, dir)
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	response, err := NewRewriteService().Rewrite(context.Background(), domain.RewriteRequest{
		Paths:       []string{path},
		Mode:        domain.RewriteModeRewrite,
		ShowListing: true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RewriteModeRewrite, response.Mode)
	assert.Equal(t, domain.RewriteSummary{
		FilesProcessed:   1,
		MethodsProcessed: 3,
		MethodsChanged:   1,
		MethodsFailed:    1,
		TryUnits:         1,
		SitesRewritten:   3,
		ThrowExitSites:   3,
	}, response.Summary)
	assert.True(t, response.HasFailures())
	require.Len(t, response.Methods, 3)

	throwing := response.Methods[0]
	assert.Equal(t, "com/example/Sample.throwing()V", throwing.Signature())
	assert.True(t, throwing.Changed)
	assert.Len(t, throwing.Tries, 1)
	require.Len(t, throwing.Sites, 3)
	for _, site := range throwing.Sites {
		assert.Equal(t, "throw", site.Exit)
		assert.Equal(t, 1, site.Slot)
	}
	assert.Equal(t, "aload 1", throwing.Sites[1].Replacement)
	assert.Contains(t, throwing.Listing, "iconst_1")
	assert.NotContains(t, throwing.Listing, "hasThrownException")

	broken := response.Methods[1]
	assert.False(t, broken.Changed)
	assert.Contains(t, broken.Error, "[STRUCTURAL_ERROR] cannot rewrite com/example/Sample.broken()V")
	assert.Contains(t, broken.Error, "does not start with a slot store")
	require.Len(t, response.Errors, 1)
	assert.True(t, strings.HasPrefix(response.Errors[0], path+": "))

	plain := response.Methods[2]
	assert.False(t, plain.Changed)
	assert.Empty(t, plain.Error)
	assert.Empty(t, plain.Listing)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestRewriteService_Inspect(t *testing.T) {
	path := sampleFile(t, t.TempDir())

	response, err := NewRewriteService().Rewrite(context.Background(), domain.RewriteRequest{
		Paths: []string{path},
		Mode:  domain.RewriteModeInspect,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, response.Summary.MethodsChanged)
	assert.Equal(t, 0, response.Summary.SitesRewritten)
	assert.Equal(t, 1, response.Summary.TryUnits)
	assert.Empty(t, response.Methods[0].Sites)
	assert.Len(t, response.Methods[0].Tries, 1)
}

func TestRewriteService_EmitDir(t *testing.T) {
	dir := t.TempDir()
	path := sampleFile(t, dir)
	untouched := writeMethodFile(t, dir, "plain.yaml", methodYAML("plain", "()I", plainMethodCode))
	out := filepath.Join(dir, "out")

	response, err := NewRewriteService().Rewrite(context.Background(), domain.RewriteRequest{
		Paths:   []string{path, untouched},
		EmitDir: out,
	})
	require.NoError(t, err)
	assert.Empty(t, response.Warnings)
	assert.Equal(t, 2, response.Summary.FilesProcessed)

	data, err := os.ReadFile(filepath.Join(out, "sample.yaml"))
	require.NoError(t, err)
	methods, err := NewMethodCodec().Decode("sample.yaml", data)
	require.NoError(t, err)
	require.Len(t, methods, 3)
	assert.Equal(t, "throwing", methods[0].Name)

	_, err = os.Stat(filepath.Join(out, "plain.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestRewriteService_EmitDirNameCollision(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b"), 0o755))
	first := sampleFile(t, filepath.Join(dir, "a"))
	second := sampleFile(t, filepath.Join(dir, "b"))

	response, err := NewRewriteService().Rewrite(context.Background(), domain.RewriteRequest{
		Paths:   []string{first, second},
		EmitDir: filepath.Join(dir, "out"),
	})
	require.NoError(t, err)
	require.Len(t, response.Warnings, 1)
	assert.Contains(t, response.Warnings[0], "not emitting "+second)
}

func TestRewriteService_UnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	good := sampleFile(t, dir)
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("methods: ["), 0o644))

	response, err := NewRewriteService().Rewrite(context.Background(), domain.RewriteRequest{
		Paths: []string{bad, good},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, response.Summary.FilesFailed)
	assert.Equal(t, 1, response.Summary.FilesProcessed)
	assert.Equal(t, 3, response.Summary.MethodsProcessed)
	assert.Contains(t, response.Errors[0], "failed to parse method file")
}

func TestRewriteService_CustomMarkerOwner(t *testing.T) {
	dir := t.TempDir()
	code := strings.ReplaceAll(throwingMethodCode, "Finally.", "com/acme/Fin.")
	path := writeMethodFile(t, dir, "acme.yaml",
		methodYAML("throwing", "()V", code, "{start: L0, end: L1, handler: L1}"))

	response, err := NewRewriteService().Rewrite(context.Background(), domain.RewriteRequest{
		Paths: []string{path},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, response.Summary.MethodsChanged)

	response, err = NewRewriteService().Rewrite(context.Background(), domain.RewriteRequest{
		Paths:       []string{path},
		MarkerOwner: "com/acme/Fin",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, response.Summary.MethodsChanged)
}

func TestRewriteService_InvalidMarkerVersion(t *testing.T) {
	_, err := NewRewriteService().Rewrite(context.Background(), domain.RewriteRequest{
		MarkerVersion: "v9",
	})
	require.Error(t, err)

	var de domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeConfigError, de.Code)
}

func TestRewriteService_Trace(t *testing.T) {
	path := sampleFile(t, t.TempDir())
	var trace bytes.Buffer

	_, err := NewRewriteService().Rewrite(context.Background(), domain.RewriteRequest{
		Paths:       []string{path},
		TraceWriter: &trace,
	})
	require.NoError(t, err)
	assert.Contains(t, trace.String(), "try/catch entry")
	assert.Contains(t, trace.String(), "rewrote marker call")
	assert.Contains(t, trace.String(), "com/example/Sample.throwing()V")
}

func TestRewriteService_Progress(t *testing.T) {
	path := sampleFile(t, t.TempDir())
	progress := NewProgressManager("Rewriting")
	progress.SetWriter(&bytes.Buffer{})

	svc := NewRewriteServiceWithProgress(progress)
	_, err := svc.RewriteFile(context.Background(), path, domain.RewriteRequest{})
	require.NoError(t, err)
	assert.False(t, progress.IsInteractive())
}
