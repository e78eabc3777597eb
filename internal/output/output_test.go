package output

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/slawatch/internal/cloudwriter"
	"github.com/chrisdamba/slawatch/internal/models"
)

var publishedAt = time.Date(2024, 4, 5, 14, 30, 0, 0, time.UTC)

func sampleUpdate(t *testing.T) (models.SummaryUpdate, []byte) {
	t.Helper()
	update := models.SummaryUpdate{
		ID:          "upd-1",
		Chart:       "zone-breach",
		Dimension:   models.DimensionZone,
		PublishedAt: publishedAt,
		Summary: models.NewSummary(models.ZoneBreachView, []models.DimensionStats{
			{Key: "Z1", TotalOrders: 100, AvgDeliveryMinutes: 48, BreachPercent: 50, AvgDelayBeyondSLA: 3,
				Distribution: &models.FiveNumberSummary{Min: 30, Q1: 40, Median: 46, Q3: 52, Max: 60}},
			{Key: "Z2", TotalOrders: 40, AvgDeliveryMinutes: 38, BreachPercent: 10},
		}),
	}
	payload, err := json.Marshal(update)
	require.NoError(t, err)
	return update, payload
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewConsoleOutput(&buf)
	require.NoError(t, out.WriteMessage("summary_trend", []byte(`{"a":1}`)))
	require.NoError(t, out.Close())
	assert.Equal(t, "[summary_trend] {\"a\":1}\n", buf.String())
}

func TestPartitionPath(t *testing.T) {
	assert.Equal(t, "year=2024/month=04/day=05/hour=14", partitionPath(publishedAt))
}

func TestJSONOutput_AppendsToHourPartition(t *testing.T) {
	dir := t.TempDir()
	_, payload := sampleUpdate(t)

	out := NewJSONOutput(dir, "out")
	require.NoError(t, out.WriteMessage("summary_zone-breach", payload))
	require.NoError(t, out.WriteMessage("summary_zone-breach", payload))
	require.NoError(t, out.Close())

	path := filepath.Join(dir, "out", "summary_zone-breach", partitionPath(publishedAt), "data.json")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var got models.SummaryUpdate
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &got))
		assert.Equal(t, "zone-breach", got.Chart)
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestJSONOutput_RejectsGarbage(t *testing.T) {
	out := NewJSONOutput(t.TempDir(), "out")
	defer out.Close()
	assert.Error(t, out.WriteMessage("summary_x", []byte("not json")))
}

func TestCSVOutput_WritesFlattenedRows(t *testing.T) {
	dir := t.TempDir()
	_, payload := sampleUpdate(t)

	out := NewCSVOutput(dir, "out")
	require.NoError(t, out.WriteMessage("summary_zone-breach", payload))
	require.NoError(t, out.Close())

	f, err := os.Open(filepath.Join(dir, "out", "summary_zone-breach", partitionPath(publishedAt), "data.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, models.SnapshotHeader, records[0])
	assert.Equal(t, []string{"upd-1", "zone-breach", "zone", "0", "Z1", "100", "48", "50", "3", "30", "40", "46", "52", "60", "1712327400"}, records[1])
	assert.Equal(t, "Z2", records[2][4])
	assert.Equal(t, "0", records[2][9])
}

func TestParquetOutput_Local(t *testing.T) {
	dir := t.TempDir()
	_, payload := sampleUpdate(t)

	out := NewParquetOutput(context.Background(), dir, "out", nil, "")
	require.NoError(t, out.WriteMessage("summary_zone-breach", payload))
	require.NoError(t, out.Close())

	data, err := os.ReadFile(filepath.Join(dir, "out", "summary_zone-breach", partitionPath(publishedAt), "data.parquet"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PAR1")))
	assert.True(t, bytes.HasSuffix(data, []byte("PAR1")))
}

type memWriter struct {
	buf    bytes.Buffer
	closed bool
}

func (m *memWriter) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memWriter) Close() error                { m.closed = true; return nil }

type memFactory struct {
	objects map[string]*memWriter
}

func (f *memFactory) NewWriter(_ context.Context, bucket, objectPath string) (cloudwriter.CloudWriter, error) {
	if bucket == "" {
		return nil, errors.New("bucket required")
	}
	w := &memWriter{}
	f.objects[bucket+"/"+objectPath] = w
	return w, nil
}

func TestParquetOutput_Cloud(t *testing.T) {
	_, payload := sampleUpdate(t)
	factory := &memFactory{objects: map[string]*memWriter{}}

	out := NewParquetOutput(context.Background(), "", "snapshots", factory, "bucket")
	require.NoError(t, out.WriteMessage("summary_zone-breach", payload))
	require.NoError(t, out.Close())

	w, ok := factory.objects["bucket/snapshots/summary_zone-breach/"+partitionPath(publishedAt)+"/data.parquet"]
	require.True(t, ok)
	assert.True(t, w.closed)
	assert.True(t, bytes.HasPrefix(w.buf.Bytes(), []byte("PAR1")))
}

func TestCloudParquetFile_Seek(t *testing.T) {
	f := NewCloudParquetFile(&memWriter{})
	_, err := f.Write([]byte("abcd"))
	require.NoError(t, err)

	pos, err := f.Seek(0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)

	_, err = f.Seek(0, 2)
	assert.Error(t, err)
	_, err = f.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestNew_UnsupportedDestination(t *testing.T) {
	cfg := &models.Config{Output: models.OutputConfig{Destination: "carrier-pigeon"}}
	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported output destination")

	cfg.Output = models.OutputConfig{Destination: "parquet", CloudStorage: models.CloudStorageConfig{Provider: "azure"}}
	_, err = New(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported cloud storage provider")

	cfg.Output = models.OutputConfig{Destination: "none"}
	dest, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, dest.WriteMessage("t", nil))
}
