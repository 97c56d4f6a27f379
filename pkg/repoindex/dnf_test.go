package repoindex

import (
	"context"
	"errors"
	"testing"
)

// fakeRunner records queries and serves canned repoquery output keyed by the
// --whatprovides pattern.
type fakeRunner struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeRunner) run(ctx context.Context, args ...string) (string, error) {
	pattern := args[len(args)-1]
	f.calls = append(f.calls, pattern)
	if err, ok := f.errs[pattern]; ok {
		return "", err
	}
	return f.responses[pattern], nil
}

func newFakeDNF(f *fakeRunner) *DNF {
	return &DNF{run: f.run}
}

func TestDNF_Lookup_VirtualProvide(t *testing.T) {
	f := &fakeRunner{responses: map[string]string{
		"rust(serde)": "rust-serde-devel-0:1.0.193-1.fc41.noarch\n",
	}}

	rec, err := newFakeDNF(f).Lookup(context.Background(), "serde")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Name != "rust-serde-devel" {
		t.Errorf("Name = %q, want rust-serde-devel", rec.Name)
	}
	if rec.Version != "1.0.193" {
		t.Errorf("Version = %q, want 1.0.193", rec.Version)
	}
	if rec.Package != "rust-serde-devel-0:1.0.193-1.fc41.noarch" {
		t.Errorf("Package = %q", rec.Package)
	}
}

func TestDNF_Lookup_DevelFallback(t *testing.T) {
	f := &fakeRunner{responses: map[string]string{
		"rust-anyhow-devel": "rust-anyhow-devel-1.0.75-2.fc41.noarch\n",
	}}

	rec, err := newFakeDNF(f).Lookup(context.Background(), "anyhow")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Version != "1.0.75" {
		t.Errorf("Version = %q, want 1.0.75", rec.Version)
	}

	// The virtual provide is tried first
	if f.calls[0] != "rust(anyhow)" {
		t.Errorf("first pattern = %q, want rust(anyhow)", f.calls[0])
	}
}

func TestDNF_Lookup_FoldedName(t *testing.T) {
	// Crate declared with underscores, packaged with hyphens.
	f := &fakeRunner{responses: map[string]string{
		"rust(proc-macro2)": "rust-proc-macro2-devel-1.0.70-1.fc41.noarch\n",
	}}

	rec, err := newFakeDNF(f).Lookup(context.Background(), "proc_macro2")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Name != "rust-proc-macro2-devel" {
		t.Errorf("Name = %q", rec.Name)
	}

	// Direct patterns must be exhausted before the folded fallback
	want := []string{"rust(proc_macro2)", "rust-proc_macro2-devel", "rust(proc-macro2)"}
	for i, pattern := range want {
		if f.calls[i] != pattern {
			t.Errorf("calls[%d] = %q, want %q", i, f.calls[i], pattern)
		}
	}
}

func TestDNF_Lookup_Absent(t *testing.T) {
	f := &fakeRunner{responses: map[string]string{}}

	_, err := newFakeDNF(f).Lookup(context.Background(), "weird-crate")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// Both direct patterns plus the folded pair
	if len(f.calls) != 4 {
		t.Errorf("made %d queries, want 4: %v", len(f.calls), f.calls)
	}
}

func TestDNF_Lookup_TransientErrorDowngraded(t *testing.T) {
	var warnings []string
	f := &fakeRunner{
		errs: map[string]error{
			"rust(flaky)":      retryable(errors.New("metadata download interrupted")),
			"rust-flaky-devel": retryable(errors.New("metadata download interrupted")),
		},
	}
	d := &DNF{run: f.run, logf: func(format string, args ...any) {
		warnings = append(warnings, format)
	}}

	_, err := d.Lookup(context.Background(), "flaky")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(warnings) == 0 {
		t.Error("transient failure should surface a warning")
	}
}

func TestDNF_AllLookupsFailed(t *testing.T) {
	f := &fakeRunner{
		errs: map[string]error{
			"rust(flaky)":       retryable(errors.New("metadata download interrupted")),
			"rust-flaky-devel":  retryable(errors.New("metadata download interrupted")),
			"rust(broken)":      retryable(errors.New("metadata download interrupted")),
			"rust-broken-devel": retryable(errors.New("metadata download interrupted")),
		},
	}
	d := newFakeDNF(f)

	if d.AllLookupsFailed() {
		t.Error("no lookups yet, nothing can have failed")
	}

	for _, name := range []string{"flaky", "broken"} {
		if _, err := d.Lookup(context.Background(), name); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Lookup(%s) = %v, want ErrNotFound", name, err)
		}
	}
	if !d.AllLookupsFailed() {
		t.Error("every query erroring should read as an unreachable repository")
	}
}

func TestDNF_AllLookupsFailed_CleanMissIsAnAnswer(t *testing.T) {
	f := &fakeRunner{
		errs: map[string]error{
			"rust(flaky)":      retryable(errors.New("metadata download interrupted")),
			"rust-flaky-devel": retryable(errors.New("metadata download interrupted")),
		},
	}
	d := newFakeDNF(f)

	// flaky errors out, serde misses cleanly: the repository answered.
	_, _ = d.Lookup(context.Background(), "flaky")
	if _, err := d.Lookup(context.Background(), "serde"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if d.AllLookupsFailed() {
		t.Error("a clean not-found answer must clear the systemic signal")
	}
}

func TestDNF_Lookup_InvalidName(t *testing.T) {
	f := &fakeRunner{}
	if _, err := newFakeDNF(f).Lookup(context.Background(), "../etc/passwd"); err == nil {
		t.Fatal("expected validation error")
	}
	if len(f.calls) != 0 {
		t.Error("invalid name must not reach the query tool")
	}
}

func TestParseNEVRA(t *testing.T) {
	tests := []struct {
		nevra, name, version string
	}{
		{"rust-serde-devel-0:1.0.193-1.fc41.noarch", "rust-serde-devel", "1.0.193"},
		{"rust-anyhow-devel-1.0.75-2.fc41.noarch", "rust-anyhow-devel", "1.0.75"},
		{"rust-proc-macro2-devel-1.0.70-1.fc41.noarch", "rust-proc-macro2-devel", "1.0.70"},
	}

	for _, tt := range tests {
		t.Run(tt.nevra, func(t *testing.T) {
			name, version := parseNEVRA(tt.nevra)
			if name != tt.name {
				t.Errorf("name = %q, want %q", name, tt.name)
			}
			if version != tt.version {
				t.Errorf("version = %q, want %q", version, tt.version)
			}
		})
	}
}

func TestFoldName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"proc_macro2", "proc-macro2"},
		{"serde-json", "serde_json"},
		{"serde", "serde"},
	}
	for _, tt := range tests {
		if got := foldName(tt.in); got != tt.want {
			t.Errorf("foldName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
