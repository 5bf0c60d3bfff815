package e2e

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// A method whose only exit from the try body is a throw.
const throwingMethod = `methods:
  - owner: com/example/Sample
    name: throwing
    desc: ()V
    code: |
      L0:
        new java/lang/IllegalStateException
        dup
        invokespecial java/lang/IllegalStateException.<init> ()V
        athrow
      L1:
        astore 1
        invokestatic Finally.hasThrownException ()Z
        pop
        aload 1
        athrow
    try_catch:
      - {start: L0, end: L1, handler: L1}
`

// A method with one return path out of the try body.
const returningMethod = `methods:
  - owner: com/example/Sample
    name: returning
    desc: ()I
    code: |
      L0:
        invokestatic com/example/Sample.compute ()I
        istore 1
      L1:
        invokestatic Finally.hasReturnedValue ()Z
        pop
        iload 1
        ireturn
      L2:
        astore 2
        invokestatic Finally.hasReturnedValue ()Z
        pop
        aload 2
        athrow
    try_catch:
      - {start: L0, end: L1, handler: L2}
`

// The default handler copy never reloads the slot it stored into.
const brokenMethod = `methods:
  - owner: com/example/Sample
    name: broken
    desc: ()V
    code: |
      L0:
        invokestatic Finally.hasReturnedValue ()Z
        pop
      L1:
        pop
        return
    try_catch:
      - {start: L0, end: L1, handler: L1}
`

type result struct {
	stdout string
	stderr string
	err    error
}

func runFinscn(t *testing.T, binaryPath, workDir string, args ...string) result {
	t.Helper()
	cmd := exec.Command(binaryPath, append([]string{"--no-color"}, args...)...)
	cmd.Dir = workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// TestRewriteE2EText tests the default text report
func TestRewriteE2EText(t *testing.T) {
	binaryPath := buildFinscnBinary(t)

	testDir := t.TempDir()
	createMethodFile(t, testDir, "throwing.yaml", throwingMethod)
	createMethodFile(t, testDir, "returning.yaml", returningMethod)

	res := runFinscn(t, binaryPath, testDir, "rewrite", "--no-progress", testDir)
	if res.err != nil {
		t.Fatalf("Command failed: %v\nStderr: %s", res.err, res.stderr)
	}

	for _, want := range []string{
		"Finally Rewrite Report",
		"com/example/Sample.throwing()V",
		"com/example/Sample.returning()I",
		"Marker calls rewritten",
	} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("Output should contain %q\n%s", want, res.stdout)
		}
	}
}

// TestRewriteE2EJSONOutputDirectory tests a JSON report written to a directory
func TestRewriteE2EJSONOutputDirectory(t *testing.T) {
	binaryPath := buildFinscnBinary(t)

	testDir := t.TempDir()
	createMethodFile(t, testDir, "throwing.yaml", throwingMethod)
	createMethodFile(t, testDir, "returning.yaml", returningMethod)
	outputDir := t.TempDir()

	res := runFinscn(t, binaryPath, testDir, "rewrite", "--no-progress", "--json", "--output", outputDir, testDir)
	if res.err != nil {
		t.Fatalf("Command failed: %v\nStderr: %s", res.err, res.stderr)
	}

	files, err := filepath.Glob(filepath.Join(outputDir, "rewrite_*.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("Expected one JSON report in %s, got %v", outputDir, files)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}

	var report struct {
		Mode    string `json:"mode"`
		Summary struct {
			FilesProcessed  int `json:"files_processed"`
			MethodsChanged  int `json:"methods_changed"`
			ReturnExitSites int `json:"return_exit_sites"`
			ThrowExitSites  int `json:"throw_exit_sites"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Invalid JSON output: %v\n%s", err, data)
	}
	if report.Mode != "rewrite" {
		t.Errorf("Expected mode rewrite, got %q", report.Mode)
	}
	if report.Summary.FilesProcessed != 2 {
		t.Errorf("Expected 2 files processed, got %d", report.Summary.FilesProcessed)
	}
	if report.Summary.MethodsChanged != 2 {
		t.Errorf("Expected 2 changed methods, got %d", report.Summary.MethodsChanged)
	}
	if report.Summary.ReturnExitSites != 1 {
		t.Errorf("Expected 1 return exit site, got %d", report.Summary.ReturnExitSites)
	}
	if report.Summary.ThrowExitSites != 2 {
		t.Errorf("Expected 2 throw exit sites, got %d", report.Summary.ThrowExitSites)
	}
}

// TestRewriteE2EFailureExitCode tests that an unprocessable method fails the run
func TestRewriteE2EFailureExitCode(t *testing.T) {
	binaryPath := buildFinscnBinary(t)

	testDir := t.TempDir()
	createMethodFile(t, testDir, "broken.yaml", brokenMethod)

	res := runFinscn(t, binaryPath, testDir, "rewrite", "--no-progress", "--json", testDir)
	if res.err == nil {
		t.Fatal("Expected a non-zero exit code")
	}
	exitErr, ok := res.err.(*exec.ExitError)
	if !ok || exitErr.ExitCode() != 1 {
		t.Errorf("Expected exit code 1, got %v", res.err)
	}
	if !strings.Contains(res.stderr, "could not be processed") {
		t.Errorf("Stderr should explain the failure, got %q", res.stderr)
	}
	if !strings.Contains(res.stdout, "finally copy does not start with a slot store") {
		t.Errorf("Report should carry the method error\n%s", res.stdout)
	}
}

// TestTreeE2E tests the structure-only command
func TestTreeE2E(t *testing.T) {
	binaryPath := buildFinscnBinary(t)

	testDir := t.TempDir()
	path := createMethodFile(t, testDir, "returning.yaml", returningMethod)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read method file: %v", err)
	}

	res := runFinscn(t, binaryPath, testDir, "tree", "--no-progress", path)
	if res.err != nil {
		t.Fatalf("Command failed: %v\nStderr: %s", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, "Try/Catch/Finally Structure") {
		t.Errorf("Unexpected title\n%s", res.stdout)
	}
	if !strings.Contains(res.stdout, "try [0,1) finally") {
		t.Errorf("Output should describe the try statement\n%s", res.stdout)
	}

	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("tree must not modify input files")
	}
}

// TestRewriteE2EProjectConfig tests that .finscn.toml in the working
// directory selects the marker owner and emit directory
func TestRewriteE2EProjectConfig(t *testing.T) {
	binaryPath := buildFinscnBinary(t)

	testDir := t.TempDir()
	emitDir := filepath.Join(t.TempDir(), "emitted")
	createTestConfigFile(t, testDir, "org/acme/Fin", emitDir)
	custom := strings.ReplaceAll(throwingMethod, "Finally.", "org/acme/Fin.")
	createMethodFile(t, testDir, "custom.yaml", custom)

	res := runFinscn(t, binaryPath, testDir, "rewrite", "--no-progress", "--json")
	if res.err != nil {
		t.Fatalf("Command failed: %v\nStderr: %s", res.err, res.stderr)
	}

	var report struct {
		Summary struct {
			MethodsChanged int `json:"methods_changed"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &report); err != nil {
		t.Fatalf("Invalid JSON output: %v\n%s", err, res.stdout)
	}
	if report.Summary.MethodsChanged != 1 {
		t.Errorf("Expected the configured owner to be rewritten, got %d changed", report.Summary.MethodsChanged)
	}

	emitted, err := os.ReadFile(filepath.Join(emitDir, "custom.yaml"))
	if err != nil {
		t.Fatalf("Rewritten file not emitted: %v", err)
	}
	if strings.Contains(string(emitted), "org/acme/Fin.hasThrownException") {
		t.Error("Emitted file still calls the marker")
	}
}

// TestInitE2E tests that init writes a config the rewrite command accepts
func TestInitE2E(t *testing.T) {
	binaryPath := buildFinscnBinary(t)

	testDir := t.TempDir()
	res := runFinscn(t, binaryPath, testDir, "init")
	if res.err != nil {
		t.Fatalf("init failed: %v\nStderr: %s", res.err, res.stderr)
	}
	if _, err := os.Stat(filepath.Join(testDir, ".finscn.toml")); err != nil {
		t.Fatalf("Config file not created: %v", err)
	}

	createMethodFile(t, testDir, "throwing.yaml", throwingMethod)
	res = runFinscn(t, binaryPath, testDir, "rewrite", "--no-progress")
	if res.err != nil {
		t.Fatalf("rewrite with generated config failed: %v\nStderr: %s", res.err, res.stderr)
	}
}
