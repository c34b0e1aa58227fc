package cli_test

import (
	"testing"

	"stackline.dev/stackline/testhelpers"
)

func TestMain(m *testing.M) {
	testhelpers.TestMain(m, nil)
}

// getStacklineBinary returns the path to the pre-built stackline binary.
func getStacklineBinary(t *testing.T) string {
	t.Helper()
	binaryPath := testhelpers.GetSharedBinaryPath()
	if binaryPath == "" {
		if err := testhelpers.GetBinaryError(); err != nil {
			t.Fatalf("failed to build stackline binary: %v", err)
		}
		t.Fatal("stackline binary not built")
	}
	return binaryPath
}
