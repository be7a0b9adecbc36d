// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"fmt"
	"os"
	"testing"
)

// RunTests runs the package tests only when GO_ENV=test. Packages whose tests open
// databases call it from TestMain.
func RunTests(m *testing.M) {
	if env := os.Getenv("GO_ENV"); env != "test" {
		fmt.Fprintf(os.Stderr, "SAFETY CHECK FAILED: tests must run with GO_ENV=test (current GO_ENV=%q)\n"+
			"Run them with: GO_ENV=test go test ./...\n", env)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// RequireTestEnvironment fails the test immediately unless GO_ENV=test.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: tests must run with GO_ENV=test. Current GO_ENV=%q", env)
	}
}
