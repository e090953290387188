package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stackguard/internal/config"
	"stackguard/internal/models"
)

func newTestValidator(t *testing.T, rules []config.ConfigRule) (*Validator, *BackupManager) {
	t.Helper()
	var paths []string
	for _, r := range rules {
		paths = append(paths, r.Path)
	}
	backups := NewBackupManager(t.TempDir(), 20, paths)
	return NewValidator(rules, backups, NewPathLocks(), time.Second), backups
}

func exactRule(path, want, fix string) config.ConfigRule {
	return config.ConfigRule{
		Name:    "exact-rule",
		Path:    path,
		Matcher: config.MatcherSpec{Type: "exact", Value: want},
		Fixer:   config.FixerSpec{Type: "write", Content: fix},
	}
}

func TestValidateNoDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "good", 0644)

	v, _ := newTestValidator(t, []config.ConfigRule{exactRule(path, "good", "good")})
	results := v.Validate(true)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].WasDrifted || results[0].Fixed {
		t.Fatalf("clean file reported drifted: %+v", results[0])
	}
}

func TestValidateReportOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "bad", 0644)

	v, _ := newTestValidator(t, []config.ConfigRule{exactRule(path, "good", "good")})
	results := v.Validate(false)
	if !results[0].WasDrifted || results[0].Fixed {
		t.Fatalf("expected drift without fix, got %+v", results[0])
	}

	content, _ := os.ReadFile(path)
	if string(content) != "bad" {
		t.Fatal("report-only validation must not touch the file")
	}
}

func TestValidateRepairsAndConfirms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "bad", 0600)

	v, _ := newTestValidator(t, []config.ConfigRule{exactRule(path, "good", "good")})
	result := v.Validate(true)[0]
	if !result.WasDrifted || !result.Fixed || result.Unfixable {
		t.Fatalf("expected repaired drift, got %+v", result)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "good" {
		t.Fatalf("file not repaired: %q", content)
	}

	// Fixers preserve the file's previous mode
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Fatalf("mode changed by fixer: %o", info.Mode().Perm())
	}
}

func TestValidateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "bad", 0644)

	v, _ := newTestValidator(t, []config.ConfigRule{exactRule(path, "good", "good")})
	first := v.Validate(true)[0]
	if !first.Fixed {
		t.Fatalf("first pass did not fix: %+v", first)
	}

	// The second of two back-to-back repair passes reports zero drift
	second := v.Validate(true)[0]
	if second.WasDrifted {
		t.Fatalf("second pass still drifted: %+v", second)
	}
}

func TestValidateTakesPreFixBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "drifted-content", 0644)

	v, backups := newTestValidator(t, []config.ConfigRule{exactRule(path, "good", "good")})
	if result := v.Validate(true)[0]; !result.Fixed {
		t.Fatalf("repair failed: %+v", result)
	}

	metas, err := backups.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 || metas[0].Reason != models.ReasonPreFix {
		t.Fatalf("expected one pre-fix snapshot, got %+v", metas)
	}

	// The snapshot captured the file as it was before the fix
	captured, err := backups.FileContent(metas[0].ID, path)
	if err != nil {
		t.Fatal(err)
	}
	if string(captured) != "drifted-content" {
		t.Fatalf("pre-fix snapshot holds %q, want the drifted content", captured)
	}
}

func TestValidateUnfixable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "bad", 0644)

	// The fixer's output still fails the matcher
	rule := exactRule(path, "good", "still-wrong")
	v, _ := newTestValidator(t, []config.ConfigRule{rule})
	result := v.Validate(true)[0]
	if !result.Unfixable {
		t.Fatalf("expected unfixable verdict, got %+v", result)
	}
	if result.Fixed {
		t.Fatalf("unfixable drift must not report fixed: %+v", result)
	}
}

func TestValidateMissingFileIsDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")

	v, _ := newTestValidator(t, []config.ConfigRule{exactRule(path, "good", "good")})
	result := v.Validate(true)[0]
	if !result.WasDrifted || !result.Fixed {
		t.Fatalf("absent file must be drifted and recreated: %+v", result)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "good" {
		t.Fatalf("recreated file holds %q", content)
	}
}

func TestValidateLockContentionIsTransient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "bad", 0644)

	locks := NewPathLocks()
	backups := NewBackupManager(t.TempDir(), 20, []string{path})
	v := NewValidator([]config.ConfigRule{exactRule(path, "good", "good")},
		backups, locks, 50*time.Millisecond)

	release, err := locks.Acquire(path, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	result := v.Validate(true)[0]
	if !result.WasDrifted || result.Fixed || result.Unfixable {
		t.Fatalf("contended repair must defer, not fix or escalate: %+v", result)
	}
}

func TestRegexMatcherAndFixer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.conf")
	writeTestFile(t, path, "endpoint=http://wrong:9999\ntimeout=30\n", 0644)

	rule := config.ConfigRule{
		Name:    "endpoint",
		Path:    path,
		Matcher: config.MatcherSpec{Type: "regex", Pattern: `endpoint=http://localhost:8080`},
		Fixer: config.FixerSpec{
			Type:        "regex_replace",
			Pattern:     `endpoint=\S+`,
			Replacement: "endpoint=http://localhost:8080",
		},
	}
	v, _ := newTestValidator(t, []config.ConfigRule{rule})
	result := v.Validate(true)[0]
	if !result.Fixed {
		t.Fatalf("regex repair failed: %+v", result)
	}

	content, _ := os.ReadFile(path)
	want := "endpoint=http://localhost:8080\ntimeout=30\n"
	if string(content) != want {
		t.Fatalf("regex fixer rewrote too much: %q", content)
	}
}

func TestJSONKeyMatcherAndFixer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	writeTestFile(t, path, `{"model": "wrong", "other": 42}`, 0644)

	rule := config.ConfigRule{
		Name:    "model",
		Path:    path,
		Matcher: config.MatcherSpec{Type: "json_key", Key: "model", Want: "llama3"},
		Fixer:   config.FixerSpec{Type: "set_json_key", Key: "model", Value: "llama3"},
	}
	v, _ := newTestValidator(t, []config.ConfigRule{rule})
	result := v.Validate(true)[0]
	if !result.Fixed {
		t.Fatalf("json repair failed: %+v", result)
	}

	content, _ := os.ReadFile(path)
	var doc map[string]interface{}
	if err := json.Unmarshal(content, &doc); err != nil {
		t.Fatalf("fixed file is not valid JSON: %v", err)
	}
	if doc["model"] != "llama3" {
		t.Fatalf("governed key not set: %v", doc["model"])
	}
	// Ungoverned keys survive the fix
	if doc["other"] != float64(42) {
		t.Fatalf("unrelated key clobbered: %v", doc["other"])
	}
}
