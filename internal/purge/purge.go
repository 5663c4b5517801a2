// Package purge deletes named datasets from a backing store and reports what was removed.
package purge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Default key sets per backend.
var (
	DefaultFirebaseKeys = []string{"signals", "messages"}
	DefaultLocalKeys    = []string{"signals"}
	DefaultTables       = []string{"personal_trades"}
)

// Store is a backend holding top-level keyed datasets.
type Store interface {
	Name() string
	// Count returns the number of entries under key; zero when key is absent.
	Count(ctx context.Context, key string) (int, error)
	// Remove deletes key and everything under it.
	Remove(ctx context.Context, key string) error
}

// PresenceChecker is implemented by stores whose keys can exist while holding no
// entries (an empty array, an empty string, null). Purge removes such keys too.
type PresenceChecker interface {
	Has(ctx context.Context, key string) (bool, error)
}

// Options controls a purge run.
type Options struct {
	DryRun bool
	Logger *slog.Logger
}

// Result is the outcome for one key.
type Result struct {
	Key     string `json:"key"`
	Found   int    `json:"found"`
	Removed bool   `json:"removed"`
	Error   string `json:"error,omitempty"`
}

// Report summarizes a purge run.
type Report struct {
	Store   string   `json:"store"`
	DryRun  bool     `json:"dryRun"`
	Results []Result `json:"results"`
}

// TotalFound returns the number of entries found across keys.
func (r *Report) TotalFound() int {
	total := 0
	for _, res := range r.Results {
		total += res.Found
	}
	return total
}

// TotalRemoved returns the number of entries removed across keys.
func (r *Report) TotalRemoved() int {
	total := 0
	for _, res := range r.Results {
		if res.Removed {
			total += res.Found
		}
	}
	return total
}

// Purge counts each key and removes the non-empty ones, plus present-but-empty keys of a
// PresenceChecker store. Keys not listed are never touched.
// A failure on one key does not stop the others; all failures are returned together.
func Purge(ctx context.Context, store Store, keys []string, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	report := &Report{Store: store.Name(), DryRun: opts.DryRun}
	var errs *multierror.Error

	for _, key := range normalizeKeys(keys) {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}

		res := Result{Key: key}

		n, err := store.Count(ctx, key)
		if err != nil {
			res.Error = err.Error()
			report.Results = append(report.Results, res)
			errs = multierror.Append(errs, fmt.Errorf("count %s/%s: %w", store.Name(), key, err))
			continue
		}
		res.Found = n

		present := n > 0
		if pc, ok := store.(PresenceChecker); ok && !present {
			present, err = pc.Has(ctx, key)
			if err != nil {
				res.Error = err.Error()
				report.Results = append(report.Results, res)
				errs = multierror.Append(errs, fmt.Errorf("check %s/%s: %w", store.Name(), key, err))
				continue
			}
		}

		switch {
		case !present:
			logger.Info("nothing to purge", "store", store.Name(), "key", key)
		case opts.DryRun:
			logger.Info("dry run, would purge", "store", store.Name(), "key", key, "count", n)
		default:
			if err := store.Remove(ctx, key); err != nil {
				res.Error = err.Error()
				errs = multierror.Append(errs, fmt.Errorf("remove %s/%s: %w", store.Name(), key, err))
			} else {
				res.Removed = true
				logger.Info("purged", "store", store.Name(), "key", key, "count", n)
			}
		}

		report.Results = append(report.Results, res)
	}

	return report, errs.ErrorOrNil()
}

func normalizeKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
