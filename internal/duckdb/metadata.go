package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/vibe-chunk/internal/feature"
	"github.com/inodb/vibe-chunk/internal/gff"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (fp FileFingerprint) modTime() string {
	return fp.ModTime.UTC().Format(time.RFC3339Nano)
}

// ImportRecord describes the last successful import of a category.
type ImportRecord struct {
	Category string
	FileFingerprint
	Rows     int64
	LoadedAt time.Time
}

// ImportFile streams a category's source file into the store and records
// its fingerprint.
func (s *Store) ImportFile(ctx context.Context, cat feature.Category) (int64, error) {
	fp, err := StatFile(cat.Path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", cat.Path, err)
	}

	r, err := gff.Open(cat.Path, cat.HasGroup)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	s.logger.Info("importing features",
		zap.String("category", cat.Name),
		zap.String("path", cat.Path),
		zap.Int64("size", fp.Size))

	n, err := s.replaceCategory(ctx, cat.Name, func() (*feature.Feature, bool, error) {
		f, err := r.Next()
		if err == io.EOF {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", cat.Path, err)
		}
		return f, true, nil
	})
	if err != nil {
		return n, fmt.Errorf("import %s: %w", cat.Name, err)
	}

	if err := s.writeImport(ctx, ImportRecord{
		Category:        cat.Name,
		FileFingerprint: fp,
		Rows:            n,
		LoadedAt:        time.Now(),
	}); err != nil {
		return n, err
	}

	s.logger.Info("imported features", zap.String("category", cat.Name), zap.Int64("rows", n))
	return n, nil
}

// Fresh reports whether the category was imported from the file currently on disk.
func (s *Store) Fresh(ctx context.Context, cat feature.Category) bool {
	fp, err := StatFile(cat.Path)
	if err != nil {
		return false
	}
	rec, err := s.LastImport(ctx, cat.Name)
	if err != nil || rec == nil {
		return false
	}
	return rec.Path == fp.Path && rec.Size == fp.Size && rec.modTime() == fp.modTime()
}

// LastImport returns the import record of a category, or nil if it was never imported.
func (s *Store) LastImport(ctx context.Context, category string) (*ImportRecord, error) {
	var (
		rec              ImportRecord
		modTime, loaded string
	)
	err := s.db.QueryRowContext(ctx, `SELECT category, path, size, mod_time, row_count, loaded_at
		FROM imports WHERE category = ?`, category).Scan(
		&rec.Category, &rec.Path, &rec.Size, &modTime, &rec.Rows, &loaded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query import record: %w", err)
	}

	if rec.ModTime, err = time.Parse(time.RFC3339Nano, modTime); err != nil {
		return nil, fmt.Errorf("parse mod_time: %w", err)
	}
	if rec.LoadedAt, err = time.Parse(time.RFC3339, loaded); err != nil {
		return nil, fmt.Errorf("parse loaded_at: %w", err)
	}
	return &rec, nil
}

func (s *Store) writeImport(ctx context.Context, rec ImportRecord) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM imports WHERE category = ?", rec.Category); err != nil {
		return fmt.Errorf("clear import record: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO imports (category, path, size, mod_time, row_count, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Category, rec.Path, rec.Size, rec.modTime(), rec.Rows,
		rec.LoadedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write import record: %w", err)
	}
	return nil
}
