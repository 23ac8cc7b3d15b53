// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS exec_reports (
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	fill_qty REAL NOT NULL,
	cum_qty REAL NOT NULL,
	avg_px REAL NOT NULL,
	status TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exec_reports_order ON exec_reports(order_id);
CREATE INDEX IF NOT EXISTS idx_exec_reports_time ON exec_reports(time);
`
