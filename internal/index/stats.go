package index

import (
	"context"
	"os"
)

// Stats holds index statistics.
type Stats struct {
	DBPath       string         `json:"db_path"`
	DBSizeBytes  int64          `json:"db_size_bytes"`
	TotalRecords int            `json:"total_records"`
	ByType       map[string]int `json:"by_artifact_type"`
}

// Stats returns index statistics.
func (idx *SQLiteIndex) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath, ByType: map[string]int{}}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.TotalRecords)

	rows, err := idx.db.QueryContext(ctx,
		`SELECT artifact_type, COUNT(*) FROM memories GROUP BY artifact_type`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return st, err
		}
		st.ByType[typ] = n
	}
	return st, rows.Err()
}
