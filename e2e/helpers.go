package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/finscn/internal/marker"
)

// buildFinscnBinary builds the finscn CLI into a temporary directory
func buildFinscnBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "finscn")

	// Build from the project root (one level up from the e2e directory)
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/finscn")
	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("Failed to get project root: %v", err)
	}
	cmd.Dir = projectRoot

	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build finscn binary: %v\n%s", err, output)
	}
	return binaryPath
}

// createMethodFile writes a method file. "Finally." in content is shorthand
// for the default marker owner.
func createMethodFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	content = strings.ReplaceAll(content, "Finally.", marker.DefaultOwner+".")
	filePath := filepath.Join(dir, filename)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", filename, err)
	}
	return filePath
}

// createTestConfigFile creates a .finscn.toml in testDir that sets the
// marker owner and the directory receiving rewritten files
func createTestConfigFile(t *testing.T, testDir, owner, emitDir string) {
	t.Helper()
	configFile := filepath.Join(testDir, ".finscn.toml")
	configContent := fmt.Sprintf("[marker]\nowner = %q\n\n[output]\ndirectory = %q\n", owner, emitDir)
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
}
