package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSideEffectImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"os", true},
		{"net/http", true},
		{"net/http/httptest", true},
		{"log/slog", true},
		{"database/sql", true},
		{"sort", false},
		{"strings", false},
		{"penguindash/internal/penguins", false},
		{"github.com/example/netutil", false},
	}
	for _, c := range cases {
		if got := SideEffectImportForbidden(c.in); got != c.want {
			t.Fatalf("SideEffectImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestNetworkImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"net", true},
		{"net/url", true},
		{"log/slog", true},
		{"os/exec", true},
		{"io", false},
		{"os", false},
		{"network/thing", false},
	}
	for _, c := range cases {
		if got := NetworkImportForbidden(c.in); got != c.want {
			t.Fatalf("NetworkImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestAssertNoDirectImportsDetectsViolation(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"os\"\nfunc X(){_ = os.Args}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, SideEffectImportForbidden)
	if err != nil {
		t.Fatalf("directImportViolations: %v", err)
	}
	if len(viols) != 1 || viols[0] != "os (in x.go)" {
		t.Fatalf("unexpected violations: %v", viols)
	}
}

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestFailHelpersReportViolations(t *testing.T) {
	rec := &recordingFatal{}
	failIfDirectViolations(rec, "pure", []string{"os (in x.go)"})
	if !strings.Contains(rec.msg, "pure") || !strings.Contains(rec.msg, "os (in x.go)") {
		t.Fatalf("unexpected message: %q", rec.msg)
	}
	rec = &recordingFatal{}
	failIfTransitiveViolations(rec, "pure", nil)
	if rec.msg != "" {
		t.Fatalf("expected no failure for empty violations")
	}
}

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"example.com/mod/internal/x", true},
		{"example.com/mod/pkg/x", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

// TestAssertNoDirectImports exercises the success path by creating a tiny temp package with safe imports.
func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}

// TestAssertNoTransitiveDependency runs against a trivial module pattern (current repo) with a predicate that always returns false to exercise path.
func TestAssertNoTransitiveDependency(t *testing.T) {
	AssertNoTransitiveDependency(t, "./...", func(string) bool { return false }, "none")
}
