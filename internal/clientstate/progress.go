package clientstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"panelreel/internal/scene"
)

// Progress is the last page reached within one volume.
type Progress struct {
	Page      scene.PageRef `json:"page"`
	PageIndex int           `json:"pageIndex"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

const progressColumns = "series, volume, chapter, page_id, page_index, updated_at"

func scanProgress(scanner interface{ Scan(dest ...any) error }) (*Progress, error) {
	var (
		p          Progress
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&p.Page.Series,
		&p.Page.Volume,
		&p.Page.Chapter,
		&p.Page.PageID,
		&p.PageIndex,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		p.UpdatedAt = updated
	}
	return &p, nil
}

// SaveProgress records page as the reader's position in its volume.
func (s *Store) SaveProgress(ctx context.Context, page scene.PageRef, index int) error {
	if page.Series == "" || page.Volume == "" {
		return errors.New("progress requires series and volume")
	}
	err := s.exec(ctx,
		`INSERT INTO progress (`+progressColumns+`) VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(series, volume) DO UPDATE SET
             chapter = excluded.chapter,
             page_id = excluded.page_id,
             page_index = excluded.page_index,
             updated_at = excluded.updated_at`,
		page.Series, page.Volume, page.Chapter, page.PageID, index, nowString(),
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// LoadProgress returns the saved position for a volume, or nil if none.
func (s *Store) LoadProgress(ctx context.Context, series, volume string) (*Progress, error) {
	ctx = ensureContext(ctx)
	var (
		p   *Progress
		err error
	)
	err = retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT `+progressColumns+` FROM progress WHERE series = ? AND volume = ?`,
			series, volume,
		)
		p, err = scanProgress(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return p, nil
}

// ListProgress returns every saved position, most recent first.
func (s *Store) ListProgress(ctx context.Context) ([]Progress, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+progressColumns+` FROM progress ORDER BY updated_at DESC, series, volume`)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

// ClearProgress removes the saved position for a volume. It reports whether
// a row existed.
func (s *Store) ClearProgress(ctx context.Context, series, volume string) (bool, error) {
	ctx = ensureContext(ctx)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM progress WHERE series = ? AND volume = ?", series, volume)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("clear progress: %w", err)
	}
	return affected > 0, nil
}
