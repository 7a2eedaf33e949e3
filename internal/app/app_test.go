package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"fic-go/internal/config"
	"fic-go/internal/fic"
)

// newTestConfig returns a config whose base directory, log directory and
// json baseline all live under a fresh temp dir.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.NewConfig("test-host", base)
	cfg.Store.Path = filepath.Join(base, "hashes.json")
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *FICApp {
	t.Helper()
	a, err := NewFICApp(context.Background(), cfg, Options{Stderr: io.Discard})
	if err != nil {
		t.Fatalf("NewFICApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFICApp_InitThenCheck(t *testing.T) {
	cfg := newTestConfig(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "world",
		"sub/c.txt": "!",
	})

	initRes, err := newTestApp(t, cfg).Init(root)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if initRes.Files != 3 {
		t.Errorf("Init() files = %d, want 3", initRes.Files)
	}

	clean, err := newTestApp(t, cfg).Check(root)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if clean.Report.HasChanges() {
		t.Errorf("Check() on untouched tree = %+v, want no changes", clean.Report)
	}

	writeTree(t, root, map[string]string{"a.txt": "hello!", "d.txt": "new"})
	if err := os.Remove(filepath.Join(root, "sub", "c.txt")); err != nil {
		t.Fatal(err)
	}

	res, err := newTestApp(t, cfg).Check(root)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	r := res.Report
	if !slices.Equal(r.Modified, []string{"a.txt"}) ||
		!slices.Equal(r.Deleted, []string{"sub/c.txt"}) ||
		!slices.Equal(r.Added, []string{"d.txt"}) ||
		r.Unchanged != 1 {
		t.Errorf("Check() report = %+v", r)
	}
}

func TestFICApp_RelativeAndAbsoluteRootsAgree(t *testing.T) {
	cfg := newTestConfig(t)
	parent := t.TempDir()
	root := filepath.Join(parent, "watched")
	writeTree(t, root, map[string]string{"a.txt": "hello", "sub/b.txt": "world"})

	if _, err := newTestApp(t, cfg).Init(root); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	t.Chdir(parent)
	res, err := newTestApp(t, cfg).Check("./watched")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Report.HasChanges() {
		t.Errorf("Check(relative) = %+v, want no changes", res.Report)
	}
}

func TestFICApp_BaselineInsideRootIsExcluded(t *testing.T) {
	root := t.TempDir()
	cfg := newTestConfig(t)
	cfg.Store.Path = filepath.Join(root, "hashes.json")
	writeTree(t, root, map[string]string{"a.txt": "hello"})

	initRes, err := newTestApp(t, cfg).Init(root)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if initRes.Files != 1 {
		t.Errorf("Init() files = %d, want 1", initRes.Files)
	}

	res, err := newTestApp(t, cfg).Check(root)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Report.HasChanges() {
		t.Errorf("Check() = %+v, baseline file should not be reported", res.Report)
	}
}

func TestFICApp_CheckBeforeInitReportsAllAdded(t *testing.T) {
	cfg := newTestConfig(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello", "b.txt": "world"})

	res, err := newTestApp(t, cfg).Check(root)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !slices.Equal(res.Report.Added, []string{"a.txt", "b.txt"}) {
		t.Errorf("Added = %v, want [a.txt b.txt]", res.Report.Added)
	}
	if len(res.Report.Modified) != 0 || len(res.Report.Deleted) != 0 {
		t.Errorf("Check() = %+v, want only additions", res.Report)
	}
}

func TestFICApp_Errors(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		a := newTestApp(t, newTestConfig(t))
		missing := filepath.Join(t.TempDir(), "nope")
		if _, err := a.Init(missing); !errors.Is(err, fic.ErrInvalidRoot) {
			t.Errorf("Init() error = %v, want ErrInvalidRoot", err)
		}
		if _, err := a.Check(missing); !errors.Is(err, fic.ErrInvalidRoot) {
			t.Errorf("Check() error = %v, want ErrInvalidRoot", err)
		}
	})

	t.Run("root is a file", func(t *testing.T) {
		a := newTestApp(t, newTestConfig(t))
		file := filepath.Join(t.TempDir(), "f.txt")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := a.Init(file); !errors.Is(err, fic.ErrInvalidRoot) {
			t.Errorf("Init() error = %v, want ErrInvalidRoot", err)
		}
	})

	t.Run("corrupt baseline", func(t *testing.T) {
		cfg := newTestConfig(t)
		if err := os.WriteFile(cfg.Store.Path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := newTestApp(t, cfg).Check(t.TempDir())
		if !errors.Is(err, fic.ErrCorrupt) {
			t.Errorf("Check() error = %v, want ErrCorrupt", err)
		}
	})

	t.Run("unwritable baseline", func(t *testing.T) {
		cfg := newTestConfig(t)
		blocker := filepath.Join(cfg.BaseDir, "blocker")
		if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg.Store.Path = filepath.Join(blocker, "hashes.json")
		_, err := newTestApp(t, cfg).Init(t.TempDir())
		if !errors.Is(err, fic.ErrWriteFailed) {
			t.Errorf("Init() error = %v, want ErrWriteFailed", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Store.Type = "ftp"
		if _, err := NewFICApp(context.Background(), cfg, Options{Stderr: io.Discard}); err == nil {
			t.Error("NewFICApp() with unknown store type should fail")
		}
	})

	t.Run("encryption without keys", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Encryption.Type = "age"
		if _, err := NewFICApp(context.Background(), cfg, Options{Stderr: io.Discard}); err == nil {
			t.Error("NewFICApp() with age encryption and no keys should fail")
		}
	})
}

func TestFICApp_HistoryWithSQLite(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Store = config.StoreConfig{Type: config.StoreSQLite}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello"})

	first := newTestApp(t, cfg)
	if _, err := first.Init(root); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	firstID := first.RunID()
	first.Close()

	second := newTestApp(t, cfg)
	if _, err := second.Check(root); err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	runs, err := second.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(History()) = %d, want 2", len(runs))
	}
	if runs[0].ID != second.RunID() || runs[0].Mode != fic.ModeCheck {
		t.Errorf("newest run = %+v, want check %s", runs[0], second.RunID())
	}
	if runs[1].ID != firstID || runs[1].Mode != fic.ModeInit || runs[1].Status != fic.RunStatusSuccess {
		t.Errorf("oldest run = %+v, want successful init %s", runs[1], firstID)
	}
}

func TestFICApp_HistoryUnsupported(t *testing.T) {
	a := newTestApp(t, newTestConfig(t))
	if _, err := a.History(10); err == nil {
		t.Error("History() on json store should return error")
	}
}

func TestFICApp_EncryptedBaseline(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Encryption.Type = "age"
	if err := SetupKeys(cfg, "secret"); err != nil {
		t.Fatalf("SetupKeys() error = %v", err)
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello"})

	opts := Options{Stderr: io.Discard, Passphrase: func() (string, error) { return "secret", nil }}

	a, err := NewFICApp(context.Background(), cfg, opts)
	if err != nil {
		t.Fatalf("NewFICApp() error = %v", err)
	}
	if _, err := a.Init(root); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	a.Close()

	data, err := os.ReadFile(cfg.Store.Path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("a.txt")) {
		t.Error("encrypted baseline leaks path names")
	}

	b, err := NewFICApp(context.Background(), cfg, opts)
	if err != nil {
		t.Fatalf("NewFICApp() error = %v", err)
	}
	defer b.Close()
	res, err := b.Check(root)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Report.HasChanges() || res.Report.Unchanged != 1 {
		t.Errorf("Check() = %+v, want one unchanged file", res.Report)
	}
}

func TestFICApp_LogsRunID(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg)
	if _, err := a.Init(t.TempDir()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	a.Close()

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, LogFileName))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "\t"+a.RunID()+"\tbaseline saved") {
		t.Errorf("log does not contain run %s: %q", a.RunID(), data)
	}
}

func TestFICApp_IgnorePatterns(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Scan.Ignore = []string{"*.log"}
	cfg.Scan.Workers = 4
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":        "hello",
		"debug.log":    "noise",
		"cache/x.tmp":  "tmp",
		".ficignore":   "cache/\n",
		"sub/keep.txt": "keep",
	})

	res, err := newTestApp(t, cfg).Init(root)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if res.Files != 2 {
		t.Errorf("Init() files = %d, want 2 (a.txt, sub/keep.txt)", res.Files)
	}
}

func TestSetupKeys(t *testing.T) {
	cfg := newTestConfig(t)
	if err := SetupKeys(cfg, "pw"); err != nil {
		t.Fatalf("SetupKeys() error = %v", err)
	}
	for _, p := range []string{cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("key file %s not created: %v", p, err)
		}
	}
	if err := SetupKeys(cfg, "pw"); err == nil {
		t.Error("second SetupKeys() should refuse to replace keys")
	}

	cfg.Encryption.PublicKeyPath = ""
	if err := SetupKeys(cfg, "pw"); err == nil {
		t.Error("SetupKeys() without key paths should return error")
	}
}

func TestFICApp_CheckUnchangedTreeWithUnusualNames(t *testing.T) {
	cfg := newTestConfig(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"ok.txt": "ok", "naïve.txt": "n"})
	if err := os.WriteFile(filepath.Join(root, "bad\xffname"), []byte("x"), 0644); err != nil {
		t.Skipf("filesystem rejects non UTF-8 names: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, ".ficignore"), 0755); err != nil {
		t.Fatal(err)
	}

	initRes, err := newTestApp(t, cfg).Init(root)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if initRes.Files != 2 || len(initRes.Skipped) != 2 {
		t.Errorf("Init() = %d files, skipped %+v; want 2 files and 2 skipped", initRes.Files, initRes.Skipped)
	}

	res, err := newTestApp(t, cfg).Check(root)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Report.HasChanges() {
		t.Errorf("Check() on unchanged tree = %+v, want no changes", res.Report)
	}
}

func TestFICApp_LogsHostID(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg)
	if _, err := a.Init(t.TempDir()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	a.Close()

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, LogFileName))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if !strings.Contains(line, "\thost=test-host") {
			t.Errorf("log line without host: %q", line)
		}
	}
}

func TestFICApp_NoHostIDOmitsAttribute(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.HostID = ""
	a := newTestApp(t, cfg)
	if _, err := a.Init(t.TempDir()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	a.Close()

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, LogFileName))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if strings.Contains(string(data), "host=") {
		t.Errorf("log mentions a host although none is configured: %q", data)
	}
}
