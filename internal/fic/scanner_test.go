package fic_test

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"testing"

	"fic-go/internal/fic"
	"fic-go/internal/testutil"
)

func newScanFixture(t *testing.T, files map[string]string, ignore ...string) (*testutil.MockFilesystemManager, *fic.Path) {
	t.Helper()

	fsmgr := testutil.NewMockFilesystemManager(ignore...)
	fsmgr.AddDirectory("/data")
	for p, content := range files {
		fsmgr.AddFile(p, []byte(content))
	}
	root, err := fsmgr.Resolve("/data")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return fsmgr, root
}

func skippedPaths(r *fic.ScanResult) []string {
	var out []string
	for _, s := range r.Skipped {
		out = append(out, s.Path)
	}
	return out
}

func TestScanner_Scan(t *testing.T) {
	t.Parallel()

	fsmgr, root := newScanFixture(t, map[string]string{
		"/data/a.txt":            "hello",
		"/data/sub/b.txt":        "world",
		"/data/sub/deep/c.bin":   "\x00\x01\x02",
		"/data/sub/deep/empty":   "",
		"/elsewhere/outside.txt": "not scanned",
	})

	got, err := fic.NewScanner(fsmgr, fic.NewNopLogger()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	want := fic.Snapshot{
		"a.txt":          testutil.FP("hello"),
		"sub/b.txt":      testutil.FP("world"),
		"sub/deep/c.bin": testutil.FP("\x00\x01\x02"),
		"sub/deep/empty": testutil.FP(""),
	}
	if !got.Snapshot.Equal(want) {
		t.Errorf("Snapshot = %v, want %v", got.Snapshot, want)
	}
	if len(got.Skipped) != 0 {
		t.Errorf("Skipped = %v, want none", got.Skipped)
	}
	if got.Root != "/data" {
		t.Errorf("Root = %q, want /data", got.Root)
	}
}

func TestScanner_EmptyDirectory(t *testing.T) {
	t.Parallel()

	fsmgr, root := newScanFixture(t, nil)
	fsmgr.AddDirectory("/data/empty")

	got, err := fic.NewScanner(fsmgr, fic.NewNopLogger()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got.Snapshot == nil || len(got.Snapshot) != 0 {
		t.Errorf("Snapshot = %v, want empty", got.Snapshot)
	}
}

func TestScanner_SkipsUnreadable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		breakFS  func(m *testutil.MockFilesystemManager)
		wantSkip []string
		wantKeep []string
		wantErr  error
	}{
		{
			name:     "open fails",
			breakFS:  func(m *testutil.MockFilesystemManager) { m.SetUnreadable("/data/b.txt") },
			wantSkip: []string{"b.txt"},
			wantKeep: []string{"a.txt", "sub/c.txt"},
			wantErr:  fs.ErrPermission,
		},
		{
			name:     "read fails part way",
			breakFS:  func(m *testutil.MockFilesystemManager) { m.SetFailAfter("/data/b.txt", 2) },
			wantSkip: []string{"b.txt"},
			wantKeep: []string{"a.txt", "sub/c.txt"},
			wantErr:  testutil.ErrInjected,
		},
		{
			name:     "directory cannot be listed",
			breakFS:  func(m *testutil.MockFilesystemManager) { m.SetUnlistable("/data/sub") },
			wantSkip: []string{"sub"},
			wantKeep: []string{"a.txt", "b.txt"},
			wantErr:  fs.ErrPermission,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fsmgr, root := newScanFixture(t, map[string]string{
				"/data/a.txt":     "alpha",
				"/data/b.txt":     "bravo",
				"/data/sub/c.txt": "charlie",
			})
			fsmgr.AddDirectory("/data/sub")
			tt.breakFS(fsmgr)

			got, err := fic.NewScanner(fsmgr, fic.NewNopLogger()).Scan(root)
			if err != nil {
				t.Fatalf("Scan() error = %v, want unreadable entries skipped", err)
			}
			if paths := skippedPaths(got); !slices.Equal(paths, tt.wantSkip) {
				t.Errorf("Skipped = %v, want %v", paths, tt.wantSkip)
			}
			if !errors.Is(got.Skipped[0].Err, tt.wantErr) {
				t.Errorf("Skipped[0].Err = %v, want %v", got.Skipped[0].Err, tt.wantErr)
			}
			if paths := got.Snapshot.Paths(); !slices.Equal(paths, tt.wantKeep) {
				t.Errorf("Snapshot paths = %v, want %v", paths, tt.wantKeep)
			}
			for _, p := range tt.wantKeep {
				if got.Snapshot[p].IsZero() {
					t.Errorf("Snapshot[%q] has no fingerprint", p)
				}
			}
		})
	}
}

func TestScanner_PartialReadIsNotFingerprinted(t *testing.T) {
	t.Parallel()

	fsmgr, root := newScanFixture(t, map[string]string{"/data/big": string(make([]byte, 10000))})
	fsmgr.SetFailAfter("/data/big", 4096)

	got, err := fic.NewScanner(fsmgr, fic.NewNopLogger()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if _, ok := got.Snapshot["big"]; ok {
		t.Error("file that failed mid-read has a fingerprint")
	}
	if !errors.Is(got.Skipped[0].Err, fic.ErrUnreadable) {
		t.Errorf("Skipped[0].Err = %v, want ErrUnreadable", got.Skipped[0].Err)
	}
}

func TestScanner_InvalidRoot(t *testing.T) {
	t.Parallel()

	fsmgr, _ := newScanFixture(t, map[string]string{"/data/file.txt": "x"})
	file, err := fsmgr.Resolve("/data/file.txt")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	unlistable, _ := newScanFixture(t, nil)
	unlistable.SetUnlistable("/data")
	unlistableRoot, _ := unlistable.Resolve("/data")

	tests := []struct {
		name  string
		fsmgr fic.FilesystemManager
		root  *fic.Path
	}{
		{name: "nil root", fsmgr: fsmgr, root: nil},
		{name: "regular file", fsmgr: fsmgr, root: file},
		{name: "root cannot be listed", fsmgr: unlistable, root: unlistableRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := fic.NewScanner(tt.fsmgr, fic.NewNopLogger()).Scan(tt.root)
			if !errors.Is(err, fic.ErrInvalidRoot) {
				t.Errorf("Scan() error = %v, want ErrInvalidRoot", err)
			}
			if got != nil {
				t.Errorf("Scan() result = %v, want nil", got)
			}
		})
	}
}

func TestScanner_Stable(t *testing.T) {
	t.Parallel()

	fsmgr, root := newScanFixture(t, map[string]string{
		"/data/a":     "1",
		"/data/b/c":   "2",
		"/data/b/d/e": "3",
	})
	scanner := fic.NewScanner(fsmgr, fic.NewNopLogger())

	first, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	second, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !first.Snapshot.Equal(second.Snapshot) {
		t.Errorf("two scans of an unchanged tree differ: %v vs %v", first.Snapshot, second.Snapshot)
	}
}

func TestScanner_WorkerCountIndependent(t *testing.T) {
	t.Parallel()

	files := make(map[string]string)
	for i := range 50 {
		files[fmt.Sprintf("/data/d%d/f%d", i%4, i)] = fmt.Sprintf("content %d", i)
	}
	fsmgr, root := newScanFixture(t, files)
	fsmgr.SetUnreadable("/data/d1/f5")
	fsmgr.SetFailAfter("/data/d2/f10", 3)

	sequential, err := fic.NewScanner(fsmgr, fic.NewNopLogger(), fic.WithWorkers(1)).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	for _, workers := range []int{0, 2, 8, 64} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			t.Parallel()
			got, err := fic.NewScanner(fsmgr, fic.NewNopLogger(), fic.WithWorkers(workers)).Scan(root)
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if !got.Snapshot.Equal(sequential.Snapshot) {
				t.Error("Snapshot differs from sequential scan")
			}
			if !slices.Equal(skippedPaths(got), skippedPaths(sequential)) {
				t.Errorf("Skipped = %v, want %v", skippedPaths(got), skippedPaths(sequential))
			}
		})
	}

	if len(sequential.Snapshot) != 48 {
		t.Errorf("Snapshot has %d entries, want 48", len(sequential.Snapshot))
	}
}

func TestScanner_Exclude(t *testing.T) {
	t.Parallel()

	fsmgr, root := newScanFixture(t, map[string]string{
		"/data/hashes.json": "{}",
		"/data/keep.txt":    "keep",
	})

	got, err := fic.NewScanner(fsmgr, fic.NewNopLogger(), fic.WithExclude("/data/hashes.json", "")).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if paths := got.Snapshot.Paths(); !slices.Equal(paths, []string{"keep.txt"}) {
		t.Errorf("Snapshot paths = %v, want [keep.txt]", paths)
	}
}

func TestScanner_IgnorePatterns(t *testing.T) {
	t.Parallel()

	fsmgr, root := newScanFixture(t, map[string]string{
		"/data/main.go":           "package main",
		"/data/debug.log":         "noise",
		"/data/sub/trace.log":     "noise",
		"/data/cache/blob":        "tmp",
		"/data/sub/cache/keep.go": "package cache",
	}, "*.log", "cache/*")

	got, err := fic.NewScanner(fsmgr, fic.NewNopLogger()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	want := []string{"main.go", "sub/cache/keep.go"}
	if paths := got.Snapshot.Paths(); !slices.Equal(paths, want) {
		t.Errorf("Snapshot paths = %v, want %v", paths, want)
	}
}

func TestScanner_SkipsNonUTF8Names(t *testing.T) {
	t.Parallel()

	fsmgr, root := newScanFixture(t, map[string]string{
		"/data/bad\xffname":      "x",
		"/data/sub/\xc3\x28.txt": "y",
		"/data/good.txt":         "g",
		"/data/café.txt":         "c",
	})

	got, err := fic.NewScanner(fsmgr, fic.NewNopLogger()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if paths := got.Snapshot.Paths(); !slices.Equal(paths, []string{"café.txt", "good.txt"}) {
		t.Errorf("Snapshot paths = %v, want [café.txt good.txt]", paths)
	}
	if len(got.Skipped) != 2 {
		t.Fatalf("Skipped = %+v, want 2 entries", got.Skipped)
	}
	for _, s := range got.Skipped {
		if !errors.Is(s.Err, fic.ErrInvalidPathName) {
			t.Errorf("Skipped %q error = %v, want ErrInvalidPathName", s.Path, s.Err)
		}
	}
}

func TestScanner_UnreadableIgnoreFile(t *testing.T) {
	t.Parallel()

	fsmgr, root := newScanFixture(t, map[string]string{
		"/data/a.txt":     "a",
		"/data/b.txt":     "b",
		"/data/noise.log": "n",
	}, "*.log")
	fsmgr.SetIgnoreFileUnreadable("/data/.ficignore")

	got, err := fic.NewScanner(fsmgr, fic.NewNopLogger()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v, want the scan to continue", err)
	}
	if paths := got.Snapshot.Paths(); !slices.Equal(paths, []string{"a.txt", "b.txt"}) {
		t.Errorf("Snapshot paths = %v, want [a.txt b.txt]", paths)
	}
	if paths := skippedPaths(got); !slices.Equal(paths, []string{".ficignore"}) {
		t.Errorf("Skipped = %v, want the ignore file reported once", paths)
	}
	var ife *fic.IgnoreFileError
	if !errors.As(got.Skipped[0].Err, &ife) || !errors.Is(ife, fs.ErrPermission) {
		t.Errorf("Skipped[0].Err = %v, want *IgnoreFileError wrapping fs.ErrPermission", got.Skipped[0].Err)
	}
}

func TestScanner_IgnoredUnlistableDirectoryIsNotReported(t *testing.T) {
	t.Parallel()

	fsmgr, root := newScanFixture(t, map[string]string{
		"/data/a.txt":       "a",
		"/data/.git/config": "locked",
		"/data/locked/f":    "f",
	}, ".git")
	fsmgr.AddDirectory("/data/.git")
	fsmgr.AddDirectory("/data/locked")
	fsmgr.SetUnlistable("/data/.git")
	fsmgr.SetUnlistable("/data/locked")

	got, err := fic.NewScanner(fsmgr, fic.NewNopLogger()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if paths := skippedPaths(got); !slices.Equal(paths, []string{"locked"}) {
		t.Errorf("Skipped = %v, want only the directory that is not ignored", paths)
	}
	if paths := got.Snapshot.Paths(); !slices.Equal(paths, []string{"a.txt"}) {
		t.Errorf("Snapshot paths = %v, want [a.txt]", paths)
	}
}

func TestScanner_ExcludedUnreadableFileIsNotReported(t *testing.T) {
	t.Parallel()

	fsmgr, root := newScanFixture(t, map[string]string{
		"/data/hashes.json": "{}",
		"/data/a.txt":       "a",
	})
	fsmgr.SetUnreadable("/data/hashes.json")

	got, err := fic.NewScanner(fsmgr, fic.NewNopLogger(), fic.WithExclude("/data/hashes.json")).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got.Skipped) != 0 {
		t.Errorf("Skipped = %+v, want none", got.Skipped)
	}
}
