// Package ocid imports OpenCellID style cell exports into the telemetry
// store and rebuilds the cell areas they touch.
package ocid

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// streamRows parses CSV rows on a goroutine. The header row, recognised by
// its first column "radio", is skipped. Both channels are closed when
// parsing completes; at most one error is sent.
func streamRows(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ocid: context cancelled")
				return
			}
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "ocid: read row")
				return
			}
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
			if first {
				first = false
				if len(record) > 0 && strings.EqualFold(record[0], "radio") {
					continue
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ocid: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// decompress transparently unwraps gzip input.
func decompress(r io.Reader) (io.Reader, func() error, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, nil, eris.Wrap(err, "ocid: peek input")
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, eris.Wrap(err, "ocid: open gzip")
		}
		return gz, gz.Close, nil
	}
	return br, func() error { return nil }, nil
}
