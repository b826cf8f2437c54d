package postgres

import (
	"context"
	"fmt"
	"strings"
)

// InsertRows writes rows into table with one multi-row INSERT. Every row must
// have len(cols) values.
func InsertRows(ctx context.Context, db DBTX, table string, cols []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	var (
		sb   strings.Builder
		args = make([]any, 0, len(rows)*len(cols))
	)
	sb.WriteString("INSERT INTO " + table + "(" + strings.Join(cols, ", ") + ") VALUES ")
	for i, row := range rows {
		if len(row) != len(cols) {
			return 0, fmt.Errorf("insert %s: row %d has %d values, want %d", table, i, len(row), len(cols))
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				sb.WriteByte(',')
			}
			args = append(args, v)
			fmt.Fprintf(&sb, "$%d", len(args))
		}
		sb.WriteByte(')')
	}
	ct, err := db.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
