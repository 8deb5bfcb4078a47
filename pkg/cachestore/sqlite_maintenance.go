package cachestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// NamespaceStats holds the row counts of one namespace.
type NamespaceStats struct {
	Namespace  string
	Entries    int   // rows stored, live or expired
	Expired    int   // rows past their expiry that PruneExpired would remove
	ValueBytes int64 // total length of the stored markup
}

// Stats is a snapshot of the whole cache table.
type Stats struct {
	Namespaces []NamespaceStats
	Entries    int
	Expired    int
}

// PruneExpired deletes every row whose expiry has passed and returns how
// many were removed.
func (s *SQLite) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.stmtPruneExpired.ExecContext(ctx, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("could not prune expired entries: %w", err)
	}
	rowsAffected, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Expired entries pruned",
		slog.Int64("entries_removed", rowsAffected),
	)
	return rowsAffected, nil
}

// GetStats returns per-namespace counts, ordered by namespace.
func (s *SQLite) GetStats(ctx context.Context) (*Stats, error) {
	rows, err := s.stmtStats.QueryContext(ctx, s.now().UnixMilli())
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	stats := &Stats{Namespaces: make([]NamespaceStats, 0)}
	for rows.Next() {
		var ns NamespaceStats
		if err = rows.Scan(&ns.Namespace, &ns.Entries, &ns.Expired, &ns.ValueBytes); err != nil {
			return nil, err
		}
		stats.Namespaces = append(stats.Namespaces, ns)
		stats.Entries += ns.Entries
		stats.Expired += ns.Expired
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
