// internal/github/paginate.go
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/go-github/v62/github"
)

const (
	pageSize          = 100
	maxRetries        = 5
	initialRetryDelay = 5 * time.Second
	rateLimitBuffer   = 5 * time.Second
)

// fetchAll issues page requests against a collection endpoint until a short or empty
// page is returned, and returns every record collected.
//
// Transient failures are retried with exponential backoff; once maxRetries is exceeded
// the records accumulated so far are returned without an error. Quota exhaustion waits
// for the reset and re-issues the same page without consuming a retry. The only errors
// returned are context cancellation and an unbuildable request.
func fetchAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var items []T
	page := 1
	retries := 0
	delay := initialRetryDelay
	logger := c.logger.With("path", path)

	for {
		if err := c.pacer.Wait(ctx); err != nil {
			return items, err
		}

		q := url.Values{}
		for k, v := range query {
			q[k] = append([]string(nil), v...)
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(pageSize))

		req, err := c.gh.NewRequest(http.MethodGet, path+"?"+q.Encode(), nil)
		if err != nil {
			return items, fmt.Errorf("build request for %s: %w", path, err)
		}

		var batch []T
		resp, err := c.gh.Do(ctx, req, &batch)
		if resp != nil {
			logger.Debug("Rate limit remaining", "remaining", resp.Rate.Remaining, "page", page)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return items, ctxErr
			}

			var rateErr *github.RateLimitError
			if errors.As(err, &rateErr) {
				wait := c.untilReset(rateErr.Rate.Reset.Time)
				logger.Warn("Rate limit reached, waiting for reset", "page", page, "wait", wait.String())
				if err := c.sleep(ctx, wait); err != nil {
					return items, err
				}
				continue
			}

			retries++
			if retries > maxRetries {
				logger.Error("Max retries reached, keeping partial results",
					"page", page, "items", len(items), "error", err)
				break
			}
			logger.Warn("Error fetching page, retrying",
				"page", page,
				"retry", retries,
				"max_retries", maxRetries,
				"delay", delay.String(),
				"malformed", isMalformedPayload(err),
				"error", err)
			if err := c.sleep(ctx, delay); err != nil {
				return items, err
			}
			delay *= 2
			continue
		}

		logger.Debug("Fetched page", "page", page, "count", len(batch))
		items = append(items, batch...)
		if len(batch) < pageSize {
			logger.Debug("Completed pages", "pages", page, "total", len(items))
			break
		}

		page++
		retries = 0
		delay = initialRetryDelay
	}

	return items, nil
}

func isMalformedPayload(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
