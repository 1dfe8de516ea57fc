package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
	"github.com/starford/dagaz/internal/vault"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
//
// Unparseable files are skipped with a warning, matching the bulk-scan
// policy: one malformed file never blocks the rest.
func Sync(db *DB, store vault.Provider, layout vault.Layout, logger *slog.Logger) error {
	metas, err := listAll(store, layout)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, layout, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

func listAll(store vault.Provider, layout vault.Layout) ([]vault.FileInfo, error) {
	var out []vault.FileInfo
	for _, dir := range []struct {
		name    string
		archive bool
	}{
		{layout.TasksDir, true},
		{layout.ProjectsDir, false},
		{layout.AreasDir, false},
	} {
		metas, err := store.List(dir.name, dir.archive)
		if err != nil {
			return nil, err
		}
		out = append(out, metas...)
	}
	return out, nil
}

// IndexFile parses data according to which configured directory owns the
// path and upserts the result.
func IndexFile(db *DB, layout vault.Layout, path string, data []byte) error {
	ev, ok := layout.Classify(vault.Notification{Path: path, Op: vault.OpModified})
	if !ok {
		return fmt.Errorf("index: path outside configured directories: %s", path)
	}

	row := DocumentRow{
		Path:      path,
		Kind:      string(ev.Kind),
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	}
	var body string

	switch ev.Kind {
	case models.KindTask:
		t, err := parser.ParseTask(path, data)
		if err != nil {
			return err
		}
		row.Title = t.Title
		row.Status = string(t.Status)
		if t.Project != nil {
			row.Project = t.Project.String()
		}
		body = t.Body
	case models.KindProject:
		p, err := parser.ParseProject(path, data)
		if err != nil {
			return err
		}
		row.Title = p.Title
		body = p.Body
	case models.KindArea:
		a, err := parser.ParseArea(path, data)
		if err != nil {
			return err
		}
		row.Title = a.Title
		body = a.Body
	}

	return db.UpsertDocument(row, body)
}
