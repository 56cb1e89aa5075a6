// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package stability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aclements/go-moremath/stats"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/sync/parallel"

	"testreliability/results"
)

// scoreWorkers bounds concurrent per-test scoring inside Report.
const scoreWorkers = 16

// maxUnstableTests caps the most-unstable list in a report.
const maxUnstableTests = 10

// Band buckets tests for the report's distribution summary at the
// 90/75/60/40 score thresholds.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandPoor      Band = "poor"
	BandCritical  Band = "critical"
)

// Annotation is an advisory string with a severity tag. Annotations are
// generated text, not executable policy.
type Annotation struct {
	Severity string `json:"severity"`
	Text     string `json:"text"`
}

// TestScore pairs a test identity with its computed score.
type TestScore struct {
	Key   results.TestKey `json:"key"`
	Score Score           `json:"score"`
}

// Report is a point-in-time stability snapshot for one project. It is
// persisted by the caller as an immutable historical snapshot and never
// mutated after creation.
type Report struct {
	Project     string    `json:"project"`
	GeneratedAt time.Time `json:"generatedAt"`
	WindowDays  int       `json:"windowDays"`

	// OverallStability is the confidence-weighted mean of the per-test
	// scores: tests with near-zero confidence barely move it.
	OverallStability float64 `json:"overallStability"`
	// TestCount is the number of scored test identities.
	TestCount int `json:"testCount"`
	// TierCounts and BandCounts summarize the score distribution.
	TierCounts map[RiskTier]int `json:"tierCounts"`
	BandCounts map[Band]int     `json:"bandCounts"`
	// ScoreQuartiles are the 25th/50th/75th percentiles of the scores.
	ScoreQuartiles [3]float64 `json:"scoreQuartiles"`
	// MostUnstable lists the lowest-scoring tests, worst first.
	MostUnstable []TestScore `json:"mostUnstable"`

	Insights        []Annotation `json:"insights"`
	Recommendations []Annotation `json:"recommendations"`
}

// BandForScore maps a score to its distribution band.
func BandForScore(score float64) Band {
	switch {
	case score >= 90:
		return BandExcellent
	case score >= 75:
		return BandGood
	case score >= 60:
		return BandFair
	case score >= 40:
		return BandPoor
	default:
		return BandCritical
	}
}

// BuildReport scores every test in the project and rolls the results
// into a Report. Per-test scoring is independent, so it fans out over a
// bounded work pool; the output is deterministic regardless of
// scheduling.
func BuildReport(ctx context.Context, project string, recordsByTest map[results.TestKey][]results.TestResultRecord, windowDays int) *Report {
	keys := make([]results.TestKey, 0, len(recordsByTest))
	for k := range recordsByTest {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Project != b.Project {
			return a.Project < b.Project
		}
		if a.Suite != b.Suite {
			return a.Suite < b.Suite
		}
		return a.TestName < b.TestName
	})

	scored := make([]TestScore, len(keys))
	_ = parallel.WorkPool(scoreWorkers, func(work chan<- func() error) {
		for i, k := range keys {
			i, k := i, k
			work <- func() error {
				scored[i] = TestScore{Key: k, Score: Compute(ctx, recordsByTest[k], windowDays)}
				return nil
			}
		}
	})

	r := &Report{
		Project:     project,
		GeneratedAt: clock.Now(ctx).UTC(),
		WindowDays:  windowDays,
		TestCount:   len(scored),
		TierCounts:  map[RiskTier]int{},
		BandCounts:  map[Band]int{},
	}

	var scores, weights []float64
	for _, ts := range scored {
		r.TierCounts[ts.Score.RiskTier]++
		r.BandCounts[BandForScore(ts.Score.Value)]++
		scores = append(scores, ts.Score.Value)
		weights = append(weights, ts.Score.Confidence)
	}
	r.OverallStability = weightedMean(scores, weights)
	r.ScoreQuartiles = quartiles(scores)
	r.MostUnstable = mostUnstable(scored)
	r.Insights, r.Recommendations = annotate(r)
	return r
}

// weightedMean is the confidence-weighted mean of scores, 100 for an
// empty (or zero-weight) set, matching the default score semantics.
func weightedMean(scores, weights []float64) float64 {
	var sum, wsum float64
	for i, s := range scores {
		sum += s * weights[i]
		wsum += weights[i]
	}
	if wsum == 0 {
		return 100
	}
	return sum / wsum
}

func quartiles(scores []float64) [3]float64 {
	if len(scores) == 0 {
		return [3]float64{100, 100, 100}
	}
	s := stats.Sample{Xs: append([]float64(nil), scores...)}
	return [3]float64{s.Quantile(0.25), s.Quantile(0.5), s.Quantile(0.75)}
}

// mostUnstable returns up to maxUnstableTests lowest-scoring tests,
// worst first, with a stable name tie-break.
func mostUnstable(scored []TestScore) []TestScore {
	worst := append([]TestScore(nil), scored...)
	sort.SliceStable(worst, func(i, j int) bool {
		return worst[i].Score.Value < worst[j].Score.Value
	})
	if len(worst) > maxUnstableTests {
		worst = worst[:maxUnstableTests]
	}
	return worst
}

// annotate generates fixed-threshold insight and recommendation text
// for the report.
func annotate(r *Report) (insights, recs []Annotation) {
	switch {
	case r.TestCount == 0:
		insights = append(insights, Annotation{
			Severity: "info",
			Text:     "No test executions in the window; stability is unknown.",
		})
		return insights, nil
	case r.OverallStability >= 85:
		insights = append(insights, Annotation{
			Severity: "info",
			Text:     fmt.Sprintf("Overall stability is excellent (%.1f).", r.OverallStability),
		})
	case r.OverallStability >= 60:
		insights = append(insights, Annotation{
			Severity: "warning",
			Text:     fmt.Sprintf("Overall stability is degraded (%.1f); review the most unstable tests.", r.OverallStability),
		})
	default:
		insights = append(insights, Annotation{
			Severity: "critical",
			Text:     fmt.Sprintf("Overall stability is poor (%.1f); the suite is not a reliable signal.", r.OverallStability),
		})
	}

	if n := r.TierCounts[TierCritical]; n > 0 {
		recs = append(recs, Annotation{
			Severity: "critical",
			Text:     fmt.Sprintf("%d test(s) are in the critical risk tier; quarantine or fix them first.", n),
		})
	}
	if n := r.TierCounts[TierHigh]; n > 0 {
		recs = append(recs, Annotation{
			Severity: "warning",
			Text:     fmt.Sprintf("%d test(s) are high risk; schedule stabilization work.", n),
		})
	}
	volatile := 0
	for _, ts := range r.MostUnstable {
		if ts.Score.Trend == TrendVolatile {
			volatile++
		}
	}
	if volatile > 0 {
		recs = append(recs, Annotation{
			Severity: "warning",
			Text:     fmt.Sprintf("%d unstable test(s) show volatile day-to-day behavior; look for environmental causes.", volatile),
		})
	}
	return insights, recs
}
