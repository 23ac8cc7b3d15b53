package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/brokersim/broker"
)

func TestCSVWritesHeaderAndRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "execs.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)

	ts := time.Date(2026, 3, 2, 14, 30, 5, 0, time.UTC)
	require.NoError(t, j.RecordExec(broker.ExecReport{
		OrderID: "o1",
		Symbol:  "AAPL",
		FillQty: 25,
		CumQty:  25,
		AvgPx:   187.5,
		Status:  broker.Partial,
		Time:    ts,
	}))
	require.NoError(t, j.RecordExec(broker.ExecReport{
		OrderID: "o1",
		Symbol:  "AAPL",
		FillQty: 75,
		CumQty:  100,
		AvgPx:   187.6,
		Status:  broker.Filled,
		Time:    ts.Add(200 * time.Millisecond),
	}))
	require.NoError(t, j.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"order_id", "symbol", "fill_qty", "cum_qty", "avg_px", "status", "time"}, rows[0])
	assert.Equal(t, "o1", rows[1][0])
	assert.Equal(t, "AAPL", rows[1][1])
	assert.Equal(t, "25.000000", rows[1][2])
	assert.Equal(t, "PARTIAL", rows[1][5])
	assert.Equal(t, "FILLED", rows[2][5])
	assert.Equal(t, "100.000000", rows[2][3])
}

func TestCSVCreateFailsOnBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSV(filepath.Join(t.TempDir(), "no", "such", "dir", "execs.csv"))
	assert.Error(t, err)
}
