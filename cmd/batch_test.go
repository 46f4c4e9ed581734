package main

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/geolocate/internal/locate"
)

const batchInputJSONL = `{"ip":"81.2.69.142"}

{"cells":[{"radio":"gsm","mcc":234,"mnc":30,"lac":2,"cid":1000}]}
not json
{"wifis":[{"mac":"0123456789ab"},{"mac":"0123456789ac","signal":-60}]}
`

func TestReadQueries(t *testing.T) {
	queries, err := readQueries(strings.NewReader(batchInputJSONL), locate.RegionKind)
	require.NoError(t, err)
	require.Len(t, queries, 4)

	assert.Equal(t, 1, queries[0].line)
	assert.Equal(t, "81.2.69.142", queries[0].params.IP)
	assert.Equal(t, locate.RegionKind, queries[0].params.Kind)

	assert.Equal(t, 3, queries[1].line)
	require.Len(t, queries[1].params.Cells, 1)
	assert.Equal(t, 1000, *queries[1].params.Cells[0].CID)

	assert.Equal(t, 4, queries[2].line)
	assert.Error(t, queries[2].err)

	require.Len(t, queries[3].params.Wifis, 2)
	assert.Equal(t, -60, *queries[3].params.Wifis[1].Signal)
}

func TestProcessBatch_KeepsInputOrder(t *testing.T) {
	queries := []batchQuery{
		{line: 1, params: locate.QueryParams{IP: "slow"}},
		{line: 2, params: locate.QueryParams{IP: "fast"}},
		{line: 3, params: locate.QueryParams{IP: "none"}},
		{line: 4, err: eris.New("line 4: bad json")},
		{line: 5, params: locate.QueryParams{IP: "fail"}},
	}
	fn := func(_ context.Context, p locate.QueryParams) (locate.Result, error) {
		switch p.IP {
		case "slow":
			time.Sleep(20 * time.Millisecond)
			return locate.NewPosition(locate.PositionParams{Lat: fp(1), Lon: fp(1), Accuracy: fp(100), Source: locate.Internal}), nil
		case "fast":
			return locate.NewPosition(locate.PositionParams{Lat: fp(2), Lon: fp(2), Accuracy: fp(100), Source: locate.Internal}), nil
		case "fail":
			return nil, eris.New("store: cells internal: connection refused")
		}
		return locate.Position{}, nil
	}

	results, err := processBatch(context.Background(), queries, 4, newLimiter(0), fn)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, 1.0, *results[0].Lat)
	assert.Equal(t, 2.0, *results[1].Lat)
	assert.Equal(t, statusNotFound, results[2].Status)
	assert.Equal(t, statusError, results[3].Status)
	assert.Contains(t, results[3].Error, "bad json")
	assert.Equal(t, statusError, results[4].Status)
	assert.Contains(t, results[4].Error, "connection refused")
}

func TestProcessBatch_RespectsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64
	fn := func(_ context.Context, _ locate.QueryParams) (locate.Result, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	}

	queries := make([]batchQuery, 20)
	results, err := processBatch(context.Background(), queries, 2, newLimiter(0), fn)
	require.NoError(t, err)
	assert.Len(t, results, 20)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestProcessBatch_Empty(t *testing.T) {
	results, err := processBatch(context.Background(), nil, 4, newLimiter(0), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProcessBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	fn := func(context.Context, locate.QueryParams) (locate.Result, error) {
		called = true
		return nil, nil
	}
	// A limiter with no burst budget left must wait, and waiting fails on
	// a cancelled context.
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	limiter.Allow()

	_, err := processBatch(ctx, []batchQuery{{line: 1}}, 1, limiter, fn)
	assert.Error(t, err)
	assert.False(t, called)
}

func TestNewLimiter(t *testing.T) {
	assert.Equal(t, rate.Inf, newLimiter(0).Limit())
	assert.Equal(t, rate.Limit(5), newLimiter(5).Limit())
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	err := writeResults(&buf, []response{
		{Status: statusNotFound},
		errorResponse(eris.New("boom")),
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"status":"not_found"}`, lines[0])
	assert.JSONEq(t, `{"status":"error","error":"boom"}`, lines[1])
}
