package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory for the rest of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	t.Setenv("PWD", abs)
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			panic("testing: failed to restore working directory: " + err.Error())
		}
	})
}
