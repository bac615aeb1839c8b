package sqlstore

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ExecScript runs the ';'-terminated statements read from r in one
// transaction and returns how many were executed. Blank lines and lines
// starting with "--" or "#" are skipped. Text after the last ';' is
// ignored.
func ExecScript(ctx context.Context, db *sql.DB, r io.Reader, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin script: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		stmt    strings.Builder
		count   int
		scanner = bufio.NewScanner(r)
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") || strings.HasPrefix(line, "#") {
			continue
		}

		for {
			head, rest, found := strings.Cut(line, ";")
			stmt.WriteString(" ")
			stmt.WriteString(head)
			if !found {
				break
			}

			query := strings.TrimSpace(stmt.String())
			stmt.Reset()
			if query != "" {
				log.Debug("executing statement", slog.String("sql", query))
				if _, err := tx.ExecContext(ctx, query); err != nil {
					return count, fmt.Errorf("statement %d: %w", count+1, err)
				}
				count++
			}
			line = rest
		}
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read script: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("commit script: %w", err)
	}
	log.Info("script executed", slog.Int("statements", count))
	return count, nil
}
