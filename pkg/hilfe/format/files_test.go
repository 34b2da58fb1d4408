package format

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"
)

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "b.hil"), "")
	write(t, filepath.Join(dir, "a.HIL"), "")
	write(t, filepath.Join(dir, "x", "c.hilfe"), "")
	write(t, filepath.Join(dir, "x", "d.go"), "")

	got, err := Files(dir, []string{".hil", ".hilfe"})
	if err != nil {
		t.Fatalf("Files() error: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.HIL"),
		filepath.Join(dir, "b.hil"),
		filepath.Join(dir, "x", "c.hilfe"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Files() mismatch (-want +got):\n%s", diff)
	}

	single, err := Files(filepath.Join(dir, "x", "d.go"), []string{".hil"})
	if err != nil || len(single) != 1 {
		t.Errorf("Files(file) = %v, %v", single, err)
	}

	if _, err := Files(filepath.Join(dir, "missing"), nil); err == nil {
		t.Error("expected an error for a missing root")
	}
}

func TestChangedFiles(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}

	write(t, filepath.Join(dir, "committed.hil"), "x = 1\n")
	write(t, filepath.Join(dir, "edited.hil"), "x = 1\n")
	for _, name := range []string{"committed.hil", "edited.hil"} {
		if _, err := wt.Add(name); err != nil {
			t.Fatal(err)
		}
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	write(t, filepath.Join(dir, "edited.hil"), "x = 2 \n")
	write(t, filepath.Join(dir, "new.hil"), "y = 1\n")
	write(t, filepath.Join(dir, "new.txt"), "ignored\n")

	got, err := ChangedFiles(dir, []string{".hil"})
	if err != nil {
		t.Fatalf("ChangedFiles() error: %v", err)
	}

	root := wt.Filesystem.Root()
	want := []string{filepath.Join(root, "edited.hil"), filepath.Join(root, "new.hil")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChangedFiles() mismatch (-want +got):\n%s", diff)
	}
}

func TestChangedFilesOutsideRepository(t *testing.T) {
	if _, err := ChangedFiles(t.TempDir(), []string{".hil"}); err == nil {
		t.Error("expected an error outside a git repository")
	}
}
