package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-chunk/internal/feature"
)

// featureIter yields features until it returns ok=false.
type featureIter func() (f *feature.Feature, ok bool, err error)

// LoadCategory replaces all stored features of a category.
func (s *Store) LoadCategory(ctx context.Context, category string, features []feature.Feature) (int64, error) {
	i := 0
	return s.replaceCategory(ctx, category, func() (*feature.Feature, bool, error) {
		if i == len(features) {
			return nil, false, nil
		}
		f := &features[i]
		i++
		return f, true, nil
	})
}

// replaceCategory deletes a category's rows and bulk-inserts the iterator's
// features with the Appender API, numbering them in iteration order. Both
// happen in one transaction, so a failed import leaves the old rows intact.
func (s *Store) replaceCategory(ctx context.Context, category string, next featureIter) (n int64, err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if _, err := conn.ExecContext(ctx, "DELETE FROM features WHERE category = ?", category); err != nil {
		return 0, fmt.Errorf("clear category %s: %w", category, err)
	}

	n, err = appendFeatures(ctx, conn, category, next)
	if err != nil {
		return n, err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return n, fmt.Errorf("commit import: %w", err)
	}
	return n, nil
}

func appendFeatures(ctx context.Context, conn *sql.Conn, category string, next featureIter) (int64, error) {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "features")
		return err
	}); err != nil {
		return 0, fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	var seq int64
	for {
		f, ok, err := next()
		if err != nil {
			return seq, err
		}
		if !ok {
			break
		}
		if seq%100000 == 0 {
			if err := ctx.Err(); err != nil {
				return seq, err
			}
		}
		if err := appender.AppendRow(
			category, seq, f.Chromosome, f.Source, f.Type,
			f.Start, f.End, f.Score, f.Strand, f.Frame, f.Group,
		); err != nil {
			return seq, fmt.Errorf("append feature: %w", err)
		}
		seq++
	}

	if err := appender.Close(); err != nil {
		return seq, fmt.Errorf("flush features: %w", err)
	}
	return seq, nil
}

// Chromosomes returns the distinct chromosomes present for a category.
func (s *Store) Chromosomes(ctx context.Context, category string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT seqname FROM features WHERE category = ? ORDER BY seqname", category)
	if err != nil {
		return nil, fmt.Errorf("query chromosomes: %w", err)
	}
	defer rows.Close()

	var chroms []string
	for rows.Next() {
		var chrom string
		if err := rows.Scan(&chrom); err != nil {
			return nil, fmt.Errorf("scan chromosome: %w", err)
		}
		chroms = append(chroms, chrom)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chromosomes: %w", err)
	}
	return chroms, nil
}

// Features returns a category's features on one chromosome in file order.
func (s *Store) Features(ctx context.Context, category, chrom string) ([]feature.Feature, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		seqname, source, feature, start, end_, score, strand, frame, group_
		FROM features
		WHERE category = ? AND seqname = ?
		ORDER BY seq`, category, chrom)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	var features []feature.Feature
	for rows.Next() {
		var f feature.Feature
		if err := rows.Scan(
			&f.Chromosome, &f.Source, &f.Type, &f.Start, &f.End,
			&f.Score, &f.Strand, &f.Frame, &f.Group,
		); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return features, nil
}

// Count returns the number of stored features of a category.
func (s *Store) Count(ctx context.Context, category string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM features WHERE category = ?", category).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count features: %w", err)
	}
	return count, nil
}
