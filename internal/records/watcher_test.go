package records

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/nspace/internal/storage"
)

const annDoc = "users:\n  - id: u-ann\n    name: Ann\n"

// watcherTestEnv sets up a ledger dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store, testDB(t)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileImported(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, store, dir, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "people.yaml"), []byte(annDoc), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := db.GetUser(ctx, "u-ann")
		return err == nil
	}, "new ledger file not imported by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:people.yaml" {
				return true
			}
		}
		return false
	}, "expected created:people.yaml callback")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, dir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "readme.md"), []byte("# hi"), 0o644)
	time.Sleep(300 * time.Millisecond)

	if cs, _ := db.AllChecksums(ctx); len(cs) != 0 {
		t.Errorf("non-ledger file imported: %v", cs)
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, dir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(dir, "2024")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "people.yaml"), []byte(annDoc), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(ctx, "2024/people.yaml")
		return cs != ""
	}, "file in new subdir not imported by watcher")
}

func TestWatcher_DeleteDropsRecords(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = os.WriteFile(filepath.Join(dir, "people.yaml"), []byte(annDoc), 0o644)
	if _, err := Sync(ctx, db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetUser(ctx, "u-ann"); err != nil {
		t.Fatalf("precondition: user should be imported: %v", err)
	}

	go Watch(ctx, db, store, dir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dir, "people.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := db.GetUser(ctx, "u-ann")
		return err != nil
	}, "records of deleted file still in store")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = os.WriteFile(filepath.Join(dir, "old.yaml"), []byte(annDoc), 0o644)
	if _, err := Sync(ctx, db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	go Watch(ctx, db, store, dir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(dir, "old.yaml"), filepath.Join(dir, "renamed.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum(ctx, "old.yaml")
		newCS, _ := db.GetChecksum(ctx, "renamed.yaml")
		_, err := db.GetUser(ctx, "u-ann")
		return oldCS == "" && newCS != "" && err == nil
	}, "rename reconciliation failed")
}

func TestWatcher_DeleteReleasesIDsToOtherFile(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = store.Write("a.yaml", []byte("users:\n  - id: u-ann\n    name: Ann A\n"))
	_ = store.Write("b.yaml", []byte("users:\n  - id: u-ann\n    name: Ann B\n"))
	if rep, err := Sync(ctx, db, store, quietLogger()); err != nil || rep.Failed != 1 {
		t.Fatalf("sync = %+v, %v", rep, err)
	}

	go Watch(ctx, db, store, dir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dir, "a.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		u, err := db.GetUser(ctx, "u-ann")
		return err == nil && u.Name == "Ann B"
	}, "b.yaml not imported after a.yaml released u-ann")
}
