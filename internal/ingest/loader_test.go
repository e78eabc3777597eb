package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/slawatch/internal/models"
)

const deliveryCSV = `order_date,zone,orders,avg_delivery_min,sla_breach_pct
2024-04-03,Z1,30,46,0.5
2024-04-01,Z1,10,40,0.4
2024-04-02,Z2,20,50,0.6
2024-04-04,Z2,40,44,0.3
2024-04-05,Z1,50,47,0.55
`

type stubSource struct {
	data  []byte
	err   error
	calls int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(context.Context) ([]byte, error) {
	s.calls++
	return s.data, s.err
}

func date(s string) time.Time {
	d, _ := time.Parse(models.DateLayout, s)
	return d
}

func TestSplitAtMidpoint(t *testing.T) {
	records := ToRecords(ParseCSV(deliveryCSV))

	initial, pool, split := SplitAtMidpoint(records)

	// dates 01..05, midpoint index 2
	assert.Equal(t, date("2024-04-03"), split)
	require.Len(t, initial, 3)
	require.Len(t, pool, 2)
	assert.Equal(t, date("2024-04-01"), initial[0].Date)
	assert.Equal(t, date("2024-04-04"), pool[0].Date)
	assert.Equal(t, date("2024-04-05"), pool[1].Date)
}

func TestSplitAtMidpoint_NoDates(t *testing.T) {
	records := []models.RawOrderRecord{{Zone: "Z1", OrderCount: 5}}
	initial, pool, split := SplitAtMidpoint(records)
	assert.Len(t, initial, 1)
	assert.Empty(t, pool)
	assert.True(t, split.IsZero())
}

func TestLoader_Load(t *testing.T) {
	src := &stubSource{data: []byte(deliveryCSV)}
	l := NewLoader(src, nil, nil, time.Time{})

	ds := l.Load(context.Background())

	assert.False(t, ds.FromFallback())
	assert.Empty(t, l.Advisory())
	assert.Len(t, ds.Initial, 3)
	assert.Len(t, ds.Pool, 2)
	assert.Equal(t, date("2024-04-03"), ds.SplitDate)
	assert.Empty(t, ds.Cuisine)
}

func TestLoader_FallbackOnFetchError(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}
	l := NewLoader(src, nil, nil, time.Time{})

	ds := l.Load(context.Background())

	assert.True(t, ds.FromFallback())
	assert.Contains(t, l.Advisory(), "connection refused")
	assert.Equal(t, FallbackRecords(), ds.Initial)
	assert.Empty(t, ds.Pool)
}

func TestLoader_FallbackOnEmptyDataset(t *testing.T) {
	l := NewLoader(&stubSource{data: []byte("order_date,zone\n")}, nil, nil, time.Time{})
	ds := l.Load(context.Background())
	assert.True(t, ds.FromFallback())
	assert.Len(t, ds.Initial, 10)
}

func TestLoader_LoadPoolReusesSplitDate(t *testing.T) {
	src := &stubSource{data: []byte(deliveryCSV)}
	l := NewLoader(src, nil, nil, time.Time{})
	l.Load(context.Background())

	// more dates arrive; the split must not move
	src.data = []byte(deliveryCSV + "2024-04-06,Z1,5,41,0.1\n2024-04-07,Z2,5,41,0.1\n")
	pool, err := l.LoadPool(context.Background())
	require.NoError(t, err)
	assert.Len(t, pool, 4)
	for _, r := range pool {
		assert.True(t, r.Date.After(date("2024-04-03")))
	}
}

func TestLoader_LoadPoolEmpty(t *testing.T) {
	l := NewLoader(&stubSource{data: []byte(deliveryCSV)}, nil, nil, date("2024-04-30"))
	_, err := l.LoadPool(context.Background())
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kpi.csv")
	require.NoError(t, os.WriteFile(path, []byte(deliveryCSV), 0o644))

	data, err := (&FileSource{Path: path}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, deliveryCSV, string(data))

	_, err = (&FileSource{Path: filepath.Join(t.TempDir(), "missing.csv")}).Fetch(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/kpi.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(deliveryCSV))
	}))
	defer srv.Close()

	data, err := NewHTTPSource(srv.URL+"/kpi.csv", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, deliveryCSV, string(data))

	_, err = NewHTTPSource(srv.URL+"/missing", time.Second).Fetch(context.Background())
	assert.Error(t, err)
}

func TestBreakerSource_OpensAfterFailures(t *testing.T) {
	inner := &stubSource{err: errors.New("boom")}
	src := NewBreakerSourceWith(inner, gobreaker.Settings{
		Timeout: time.Hour,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
	})

	for i := 0; i < 2; i++ {
		_, err := src.Fetch(context.Background())
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, src.State())

	_, err := src.Fetch(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls)
}
