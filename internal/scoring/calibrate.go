package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"vishing-sim/backend/internal/grounding"
	"vishing-sim/backend/internal/persona"
)

// CalibrationResult compares predicted request-role scores with human ratings
// for one domain.
type CalibrationResult struct {
	Domain  string  `json:"domain"`
	Samples int     `json:"samples"`
	MAE     float64 `json:"mean_absolute_error"`
	// MaxError is the largest single absolute deviation.
	MaxError float64 `json:"max_error"`
	// Failed counts rows the oracle could not score; they are excluded from
	// Samples and the error figures.
	Failed int `json:"failed"`
}

// ErrNoPredictions is returned when the oracle produced no usable score for
// any corpus row.
var ErrNoPredictions = errors.New("calibration produced no predictions")

// Calibrate scores every corpus row with the request-role scorer, using the
// other rows of the same domain as grounding, and reports the mean absolute
// error per domain. Rows the oracle fails to score are counted as failed
// rather than compared. At most concurrency rows are scored at once.
func Calibrate(ctx context.Context, scorer *RequestRoleScorer, corpus []grounding.Example, limit, concurrency int) ([]CalibrationResult, error) {
	if limit <= 0 {
		limit = grounding.DefaultLimit
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	byDomain := make(map[string][]grounding.Example)
	for _, ex := range corpus {
		key := strings.ToLower(strings.TrimSpace(ex.Domain))
		byDomain[key] = append(byDomain[key], ex)
	}

	type sample struct {
		domain string
		err    float64
		failed bool
	}
	var (
		mu      sync.Mutex
		samples []sample
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for domain, rows := range byDomain {
		for i, row := range rows {
			examples := leaveOneOut(rows, i, limit)
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				predicted, _, err := scorer.assess(ctx, row.Role, row.RequestPhrase, persona.Domain(domain), examples)
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s := sample{domain: domain, failed: err != nil}
				if err != nil {
					logrus.WithError(err).WithFields(logrus.Fields{"domain": domain, "role": row.Role, "category": row.RequestPhrase}).Warn("calibration row not scored")
				} else {
					s.err = math.Abs(predicted - row.Rating)
				}
				mu.Lock()
				samples = append(samples, s)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totals := make(map[string]*CalibrationResult)
	scored := 0
	for _, s := range samples {
		r, ok := totals[s.domain]
		if !ok {
			r = &CalibrationResult{Domain: s.domain}
			totals[s.domain] = r
		}
		if s.failed {
			r.Failed++
			continue
		}
		scored++
		r.Samples++
		r.MAE += s.err
		r.MaxError = math.Max(r.MaxError, s.err)
	}
	if scored == 0 {
		return nil, fmt.Errorf("%w: %d rows failed", ErrNoPredictions, len(samples))
	}
	out := make([]CalibrationResult, 0, len(totals))
	for _, r := range totals {
		if r.Samples > 0 {
			r.MAE = round2(r.MAE / float64(r.Samples))
		}
		r.MaxError = round2(r.MaxError)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func leaveOneOut(rows []grounding.Example, skip, limit int) []grounding.Example {
	out := make([]grounding.Example, 0, limit)
	for i, row := range rows {
		if i == skip {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, row)
	}
	return out
}
