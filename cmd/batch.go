package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/geolocate/internal/locate"
)

var (
	batchInput string
	batchKind  string
)

// maxQueryLine bounds a single JSONL query.
const maxQueryLine = 1 << 20

type locateFunc func(ctx context.Context, p locate.QueryParams) (locate.Result, error)

// batchQuery is one input line. A line that does not parse keeps its error
// so the output stays aligned with the input.
type batchQuery struct {
	line   int
	params locate.QueryParams
	err    error
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run lookups for every query in a JSONL file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("locate"); err != nil {
			return err
		}
		kind, err := parseKind(batchKind)
		if err != nil {
			return err
		}

		f, err := os.Open(batchInput)
		if err != nil {
			return eris.Wrap(err, "batch: open input")
		}
		defer f.Close() //nolint:errcheck

		queries, err := readQueries(f, kind)
		if err != nil {
			return err
		}

		loc, err := initLocator(ctx)
		if err != nil {
			return err
		}
		defer loc.Close() //nolint:errcheck

		results, err := processBatch(ctx, queries, cfg.Batch.Concurrency, newLimiter(cfg.Batch.RatePerSec), loc.locate)
		if err != nil {
			return err
		}
		return writeResults(cmd.OutOrStdout(), results)
	},
}

func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSec), 1)
}

// readQueries parses one QueryParams object per non-blank line.
func readQueries(r io.Reader, kind locate.Kind) ([]batchQuery, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxQueryLine)

	var queries []batchQuery
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		q := batchQuery{line: line}
		if err := json.Unmarshal(text, &q.params); err != nil {
			q.err = eris.Wrapf(err, "line %d", line)
		}
		q.params.Kind = kind
		queries = append(queries, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "batch: read input")
	}
	return queries, nil
}

// processBatch runs every query with at most concurrency passes in flight.
// Results are in input order. Individual failures become error responses;
// only cancellation aborts the batch.
func processBatch(ctx context.Context, queries []batchQuery, concurrency int, limiter *rate.Limiter, fn locateFunc) ([]response, error) {
	results := make([]response, len(queries))
	if len(queries) == 0 {
		zap.L().Info("no queries found")
		return results, nil
	}

	zap.L().Info("processing batch",
		zap.Int("queries", len(queries)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	var found, notFound, failed atomic.Int64

	for i, q := range queries {
		g.Go(func() error {
			if q.err != nil {
				failed.Add(1)
				results[i] = errorResponse(q.err)
				return nil
			}
			if err := limiter.Wait(gctx); err != nil {
				return eris.Wrap(err, "batch: rate limit")
			}

			res, err := fn(gctx, q.params)
			if err != nil {
				failed.Add(1)
				zap.L().Error("lookup failed", zap.Int("line", q.line), zap.Error(err))
				results[i] = errorResponse(err)
				return nil // don't abort batch on individual failure
			}

			results[i] = newResponse(res)
			if results[i].Status == statusOK {
				found.Add(1)
			} else {
				notFound.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("found", found.Load()),
		zap.Int64("not_found", notFound.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results, nil
}

func writeResults(w io.Writer, results []response) error {
	bw := bufio.NewWriter(w)
	for _, r := range results {
		if err := writeJSON(bw, r); err != nil {
			return err
		}
	}
	return eris.Wrap(bw.Flush(), "write output")
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "path to a JSONL file of queries (required)")
	batchCmd.Flags().StringVar(&batchKind, "kind", "position", "result kind: position or region")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
