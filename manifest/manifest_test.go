package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "test-app"
version = "0.1.0"
entry = "src/app.du"

[runtime]
stack-size = 4096
frame-limit = 64
gc-grow-factor = 3.0
gc-min-heap = 2048
gc-stress = true
module-paths = ["lib", "/opt/dictu"]

[log]
verbosity = 2
file = "dictu.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if m.Runtime.StackSize != 4096 {
		t.Errorf("stack-size = %d, want 4096", m.Runtime.StackSize)
	}
	if m.Runtime.FrameLimit != 64 {
		t.Errorf("frame-limit = %d, want 64", m.Runtime.FrameLimit)
	}
	if m.Runtime.GCGrowFactor != 3 {
		t.Errorf("gc-grow-factor = %v, want 3", m.Runtime.GCGrowFactor)
	}
	if m.Runtime.GCMinHeap != 2048 {
		t.Errorf("gc-min-heap = %d, want 2048", m.Runtime.GCMinHeap)
	}
	if !m.Runtime.GCStress {
		t.Error("gc-stress = false, want true")
	}
	if m.Log.Verbosity != 2 || m.Log.File != "dictu.log" {
		t.Errorf("log = %+v, want verbosity 2, file dictu.log", m.Log)
	}

	wantEntry := filepath.Join(m.Dir, "src", "app.du")
	if got := m.EntryPath(); got != wantEntry {
		t.Errorf("EntryPath() = %q, want %q", got, wantEntry)
	}

	dirs := m.ModuleDirs()
	if len(dirs) != 2 {
		t.Fatalf("ModuleDirs() = %v, want 2 entries", dirs)
	}
	if dirs[0] != filepath.Join(m.Dir, "lib") {
		t.Errorf("ModuleDirs()[0] = %q, want %q", dirs[0], filepath.Join(m.Dir, "lib"))
	}
	if dirs[1] != "/opt/dictu" {
		t.Errorf("ModuleDirs()[1] = %q, want /opt/dictu", dirs[1])
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := DefaultRuntime()
	if m.Runtime.StackSize != want.StackSize {
		t.Errorf("stack-size = %d, want %d", m.Runtime.StackSize, want.StackSize)
	}
	if m.Runtime.FrameLimit != want.FrameLimit {
		t.Errorf("frame-limit = %d, want %d", m.Runtime.FrameLimit, want.FrameLimit)
	}
	if m.Runtime.GCGrowFactor != want.GCGrowFactor {
		t.Errorf("gc-grow-factor = %v, want %v", m.Runtime.GCGrowFactor, want.GCGrowFactor)
	}
	if m.Project.Entry != "main.du" {
		t.Errorf("entry = %q, want main.du", m.Project.Entry)
	}
}

func TestLoadManifestParseError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[project\nname = ")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[project]
name = "walker"
`)
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("expected manifest, got nil")
	}
	if m.Project.Name != "walker" {
		t.Errorf("project name = %q, want walker", m.Project.Name)
	}
}

func TestFindAndLoadMissing(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		// A dictu.toml further up the real filesystem would be found here;
		// only the project name tells us it is not ours.
		if m.Project.Name == "" {
			t.Errorf("unexpected empty manifest %+v", m)
		}
	}
}

func TestResolver(t *testing.T) {
	root := t.TempDir()
	scripts := filepath.Join(root, "scripts")
	lib := filepath.Join(root, "lib")
	for _, d := range []string{scripts, lib} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	write := func(path string) {
		t.Helper()
		if err := os.WriteFile(path, []byte("var x = 1;"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(filepath.Join(scripts, "local.du"))
	write(filepath.Join(lib, "shared.du"))

	r := NewResolver([]string{lib})

	tests := []struct {
		name    string
		target  string
		want    string
		wantErr bool
	}{
		{"relative to importer", "local.du", filepath.Join(scripts, "local.du"), false},
		{"search directory", "shared.du", filepath.Join(lib, "shared.du"), false},
		{"absolute", filepath.Join(lib, "shared.du"), filepath.Join(lib, "shared.du"), false},
		{"missing", "nope.du", "", true},
		{"directory", "../lib", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(scripts, tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve(%q) = %q, want error", tt.target, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.target, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}
