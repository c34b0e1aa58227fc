package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	sharedBinaryPath string
	binaryOnce       sync.Once
	binaryErr        error
)

// GetSharedBinaryPath returns the path of a compiled stackline binary,
// building it on first use. Integration tests exec this binary the way git
// hooks do.
func GetSharedBinaryPath() string {
	binaryOnce.Do(func() {
		sharedBinaryPath, binaryErr = buildBinary()
	})
	return sharedBinaryPath
}

// GetBinaryError returns any error from building the shared binary.
func GetBinaryError() error {
	return binaryErr
}

// buildBinary compiles cmd/stackline into a temp directory.
func buildBinary() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	moduleRoot := findModuleRoot(wd)
	if moduleRoot == "" {
		return "", fmt.Errorf("could not find module root (go.mod) starting from %s", wd)
	}

	tmpDir, err := os.MkdirTemp("", "stackline-test-binary-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	binaryPath := filepath.Join(tmpDir, "stackline")

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/stackline")
	cmd.Dir = moduleRoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", fmt.Errorf("failed to build: %s: %w", string(output), err)
	}

	return binaryPath, nil
}

// findModuleRoot walks up from startDir to the directory containing go.mod.
func findModuleRoot(startDir string) string {
	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// TestMain builds the stackline binary once before running a package's tests.
// Packages whose tests exec the binary call testhelpers.TestMain(m, nil) from
// their own TestMain.
func TestMain(m *testing.M, cleanup func()) {
	if GetSharedBinaryPath() == "" {
		fmt.Fprintf(os.Stderr, "failed to build stackline binary: %v\n", GetBinaryError())
		os.Exit(1)
	}

	code := m.Run()

	if sharedBinaryPath != "" {
		_ = os.RemoveAll(filepath.Dir(sharedBinaryPath))
	}
	if cleanup != nil {
		cleanup()
	}
	os.Exit(code)
}
