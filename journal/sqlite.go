package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/brokersim/broker"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordExec(r broker.ExecReport) error {
	_, err := j.db.Exec(`
		INSERT INTO exec_reports
		(order_id, symbol, fill_qty, cum_qty, avg_px, status, time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.OrderID, r.Symbol, r.FillQty, r.CumQty, r.AvgPx, string(r.Status), r.Time,
	)
	return err
}

// ListByOrder returns every recorded report for an order id in insertion
// order.
func (j *SQLite) ListByOrder(orderID string) ([]broker.ExecReport, error) {
	rows, err := j.db.Query(`
		SELECT order_id, symbol, fill_qty, cum_qty, avg_px, status, time
		FROM exec_reports WHERE order_id = ? ORDER BY rowid`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []broker.ExecReport
	for rows.Next() {
		var r broker.ExecReport
		var status string
		if err := rows.Scan(&r.OrderID, &r.Symbol, &r.FillQty, &r.CumQty, &r.AvgPx, &status, &r.Time); err != nil {
			return nil, err
		}
		r.Status = broker.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
