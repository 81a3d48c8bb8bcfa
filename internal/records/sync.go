package records

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/nspace/internal/apperr"
	"github.com/starford/nspace/internal/checksum"
	"github.com/starford/nspace/internal/ledger"
	"github.com/starford/nspace/internal/storage"
)

// SyncReport summarises one Sync pass.
type SyncReport struct {
	Imported  int `json:"imported"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Failed    int `json:"failed"`
}

// Sync walks the ledger and brings the store up to date:
//   - files removed from disk have their records dropped
//   - new/changed files are parsed and imported
//
// A file that fails to parse keeps its previously imported records. A file
// that clashes with ids held by another file is retried after the other
// imports of the pass, since they may release those ids.
func Sync(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) (SyncReport, error) {
	var rep SyncReport

	metas, err := store.List("")
	if err != nil {
		return rep, err
	}
	checksums, err := db.AllChecksums(ctx)
	if err != nil {
		return rep, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
	}
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteSource(ctx, p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		rep.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	pending := make(map[string][]byte)
	var order []string
	for _, m := range metas {
		if checksums[m.Path] == m.Checksum {
			rep.Unchanged++
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			rep.Failed++
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		pending[m.Path] = data
		order = append(order, m.Path)
	}

	conflicts := make(map[string]error)
	for progress := true; progress && len(pending) > 0; {
		progress = false
		for _, p := range order {
			data, ok := pending[p]
			if !ok {
				continue
			}
			err := importFile(ctx, db, p, data)
			if errors.Is(err, apperr.ErrConflict) {
				conflicts[p] = err
				continue
			}
			delete(pending, p)
			delete(conflicts, p)
			if err != nil {
				rep.Failed++
				logger.Warn("sync: import failed", slog.String("path", p), slog.String("error", err.Error()))
				continue
			}
			progress = true
			rep.Imported++
			logger.Debug("sync: imported", slog.String("path", p), slog.String("checksum", checksum.Short(checksum.Sum(data))))
		}
	}
	for _, p := range order {
		if err, ok := conflicts[p]; ok {
			rep.Failed++
			logger.Warn("sync: import failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	return rep, nil
}

// importFile parses data and replaces the records previously imported from path.
func importFile(ctx context.Context, db *DB, path string, data []byte) error {
	b, err := ledger.Parse(path, data)
	if err != nil {
		return err
	}
	return db.ReplaceSource(ctx, path, checksum.Sum(data), b)
}
