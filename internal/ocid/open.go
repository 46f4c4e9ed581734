package ocid

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/geolocate/internal/resilience"
)

// Opener fetches export files from local paths or HTTP(S) URLs.
type Opener struct {
	client  *http.Client
	retry   resilience.RetryConfig
	limiter *rate.Limiter
}

// NewOpener creates an Opener. Downloads are retried on transient failures
// and spaced by a limiter of one request per second.
func NewOpener(client *http.Client, retry resilience.RetryConfig) *Opener {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("ocid", "download")
	}
	return &Opener{client: client, retry: retry, limiter: rate.NewLimiter(1, 1)}
}

// Open returns the content at location. The caller closes it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		f, err := os.Open(location)
		if err != nil {
			return nil, eris.Wrapf(err, "ocid: open %s", location)
		}
		return f, nil
	}

	return resilience.DoVal(ctx, o.retry, func(ctx context.Context) (io.ReadCloser, error) {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "ocid: rate limiter wait")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, eris.Wrap(err, "ocid: create request")
		}
		req.Header.Set("User-Agent", "geolocate/1.0")

		resp, err := o.client.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrapf(err, "ocid: get %s", location), 0)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close() //nolint:errcheck
			err := eris.Errorf("ocid: get %s: http %d", location, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		return resp.Body, nil
	})
}
