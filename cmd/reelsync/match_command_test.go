package main

import (
	"testing"
)

func TestMatchDryRunOnEmptyStore(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"match", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("match --dry-run: %v", err)
	}
	requireContains(t, out, "Processed")
	requireContains(t, out, "Dry run")
}
