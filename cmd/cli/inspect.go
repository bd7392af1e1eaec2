package main

import (
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// inspector reads a consumer's database. A nil db means the database is not
// configured and every view reports it as unreachable.
type inspector struct {
	label string
	db    *sql.DB
}

func openInspector(label, url string) *inspector {
	db, err := sql.Open("postgres", url)
	if err != nil {
		db = nil
	}
	return &inspector{label: label, db: db}
}

func (i *inspector) Close() error {
	if i.db == nil {
		return nil
	}
	return i.db.Close()
}

func (i *inspector) reachable() bool {
	return i.db != nil && i.db.Ping() == nil
}

func (i *inspector) showAuditLog(w io.Writer) {
	if !i.reachable() {
		fmt.Fprintf(w, "  %s[x] %s db not reachable%s\n", Red, i.label, Reset)
		return
	}
	rows, err := i.db.Query(`SELECT operation, user_id, user_email, COALESCE(correlation_id, ''), received_at
		FROM user_event_log ORDER BY received_at DESC LIMIT 20`)
	if err != nil {
		fmt.Fprintf(w, "  %s[x] %v%s\n", Red, err, Reset)
		return
	}
	defer rows.Close()

	fmt.Fprintf(w, "  %s%-8s %-6s %-30s %-36s %s%s\n", Bold, "OP", "USER", "EMAIL", "CORRELATION", "RECEIVED", Reset)
	fmt.Fprintf(w, "  %s%s%s\n", Dim, strings.Repeat("-", 100), Reset)
	for rows.Next() {
		var op, email, correlationID string
		var userID int64
		var received time.Time
		if err := rows.Scan(&op, &userID, &email, &correlationID, &received); err != nil {
			fmt.Fprintf(w, "  %s[x] %v%s\n", Red, err, Reset)
			return
		}
		color := Green
		if op == "DELETE" {
			color = Yellow
		}
		fmt.Fprintf(w, "  %s%-8s%s %-6d %-30s %s%-36s%s %s\n",
			color, op, Reset, userID, email, Dim, correlationID, Reset, received.Format(time.RFC3339))
	}
}

func (i *inspector) showMetrics(w io.Writer) {
	if !i.reachable() {
		fmt.Fprintf(w, "  %s[x] %s db not reachable%s\n", Red, i.label, Reset)
		return
	}
	rows, err := i.db.Query(`SELECT metric_date, operation, count
		FROM user_event_metrics ORDER BY metric_date DESC, operation LIMIT 30`)
	if err != nil {
		fmt.Fprintf(w, "  %s[x] %v%s\n", Red, err, Reset)
		return
	}
	defer rows.Close()

	fmt.Fprintf(w, "  %s%-12s %-10s %s%s\n", Bold, "DATE", "OPERATION", "COUNT", Reset)
	fmt.Fprintf(w, "  %s%s%s\n", Dim, strings.Repeat("-", 45), Reset)
	for rows.Next() {
		var date time.Time
		var op string
		var count int
		if err := rows.Scan(&date, &op, &count); err != nil {
			fmt.Fprintf(w, "  %s[x] %v%s\n", Red, err, Reset)
			return
		}
		fmt.Fprintf(w, "  %-12s %-10s %s%s%s %d\n", date.Format(time.DateOnly), op, Green, bar(count), Reset, count)
	}
}

func bar(count int) string {
	return strings.Repeat("#", min(count, 40))
}
