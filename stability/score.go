// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package stability computes per-test stability scores, trend
// classifications and project-level reports from historical test-result
// records.
//
// Scoring never fails on sparse data: uncertainty is encoded in the
// confidence field instead. An empty record set yields the default
// score of 100 with confidence 0.1 — absence of failures is not
// evidence of stability.
package stability

import (
	"context"
	"sort"
	"time"

	"go.chromium.org/luci/common/clock"
	"gonum.org/v1/gonum/stat"

	"testreliability/results"
)

// Trend classifies the direction of a test's stability over the window.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendStable    Trend = "stable"
	TrendVolatile  Trend = "volatile"
)

// RiskTier is the ordinal classification derived from a score.
type RiskTier string

const (
	TierLow      RiskTier = "low"
	TierMedium   RiskTier = "medium"
	TierHigh     RiskTier = "high"
	TierCritical RiskTier = "critical"
)

// Scoring constants. The score starts at 100, is dominated by the
// success rate, and is reduced by capped penalties for volatility,
// consecutive failures, small samples and slow recovery.
const (
	volatilityPenaltyFactor = 40.0
	volatilityPenaltyCap    = 30.0
	consecFailurePenalty    = 5.0
	consecFailurePenaltyCap = 15.0
	smallSampleFactor       = 0.9
	smallSampleThreshold    = 10
	slowRecoveryPenalty     = 10.0
	slowRecoveryHours       = 24.0

	// stabilizeRunLength is the pass streak treated as "stabilized".
	stabilizeRunLength = 7

	// confidenceFloor is the minimum confidence ever reported.
	confidenceFloor = 0.1
)

// Score is a computed, re-derivable projection over a sliding window of
// records for one test identity. It is always recomputable from the
// underlying records; there is no lifecycle beyond "computed then
// optionally cached".
type Score struct {
	// Value is the stability score in [0, 100].
	Value float64 `json:"value"`
	// Trend is the window-over-window direction classification.
	Trend Trend `json:"trend"`
	// Confidence is in [confidenceFloor, 1]; it rises monotonically
	// with sample size within a fixed window.
	Confidence float64 `json:"confidence"`
	// RiskTier is derived from Value.
	RiskTier RiskTier `json:"riskTier"`
	// ComputedAt is when the score was derived.
	ComputedAt time.Time `json:"computedAt"`

	// SampleSize is the number of records inside the window.
	SampleSize int `json:"sampleSize"`
	// SuccessRate and FailureRate are passed/total and failed/total.
	SuccessRate float64 `json:"successRate"`
	FailureRate float64 `json:"failureRate"`
	// Volatility is the standard deviation of daily success rates.
	Volatility float64 `json:"volatility"`
	// MaxConsecutiveFailures and MaxConsecutiveSuccesses are the longest
	// streaks inside the window.
	MaxConsecutiveFailures  int `json:"maxConsecutiveFailures"`
	MaxConsecutiveSuccesses int `json:"maxConsecutiveSuccesses"`
	// AvgRecoveryHours is the mean time from a failure to the next
	// success, 0 when no failure ever recovered.
	AvgRecoveryHours float64 `json:"avgRecoveryHours"`
	// TimeToStabilizeDays is days since the start of the most recent
	// run of stabilizeRunLength consecutive passes, or -1 if none.
	TimeToStabilizeDays int `json:"timeToStabilizeDays"`
}

// Compute derives the stability score for one test identity from its
// records, considering only the trailing windowDays relative to the
// context clock.
func Compute(ctx context.Context, records []results.TestResultRecord, windowDays int) Score {
	now := clock.Now(ctx).UTC()
	s := Score{
		Value:               100,
		Trend:               TrendStable,
		RiskTier:            TierLow,
		ComputedAt:          now,
		TimeToStabilizeDays: -1,
	}

	in := windowed(records, now, windowDays)
	s.SampleSize = len(in)
	s.Confidence = confidence(len(in), windowDays)
	if len(in) == 0 {
		return s
	}

	passed, failed := 0, 0
	for _, r := range in {
		switch r.Status {
		case results.StatusPassed:
			passed++
		case results.StatusFailed:
			failed++
		}
	}
	s.SuccessRate = float64(passed) / float64(len(in))
	s.FailureRate = float64(failed) / float64(len(in))
	s.Volatility = dailyVolatility(in)
	s.MaxConsecutiveFailures, s.MaxConsecutiveSuccesses = streaks(in)
	s.AvgRecoveryHours = avgRecoveryHours(in)
	s.TimeToStabilizeDays = timeToStabilize(in, now)

	score := 100 * s.SuccessRate
	score -= capped(s.Volatility*volatilityPenaltyFactor, volatilityPenaltyCap)
	score -= capped(float64(s.MaxConsecutiveFailures)*consecFailurePenalty, consecFailurePenaltyCap)
	if len(in) < smallSampleThreshold {
		score *= smallSampleFactor
	}
	if s.AvgRecoveryHours > slowRecoveryHours {
		score -= slowRecoveryPenalty
	}
	s.Value = clamp(score, 0, 100)

	s.Trend = classifyTrend(in, s.Volatility)
	s.RiskTier = TierForScore(s.Value)
	return s
}

// TierForScore maps a score to its risk tier at the 90/75/50
// thresholds.
func TierForScore(score float64) RiskTier {
	switch {
	case score >= 90:
		return TierLow
	case score >= 75:
		return TierMedium
	case score >= 50:
		return TierHigh
	default:
		return TierCritical
	}
}

// windowed returns the records within the trailing windowDays, sorted
// chronologically.
func windowed(records []results.TestResultRecord, now time.Time, windowDays int) []results.TestResultRecord {
	cutoff := now.AddDate(0, 0, -windowDays)
	in := make([]results.TestResultRecord, 0, len(records))
	for _, r := range records {
		if !r.Timestamp.Before(cutoff) && !r.Timestamp.After(now) {
			in = append(in, r)
		}
	}
	sort.SliceStable(in, func(i, j int) bool { return in[i].Timestamp.Before(in[j].Timestamp) })
	return in
}

// confidence rises monotonically with sample size, is reduced for very
// short or very long windows, and never drops below the floor.
func confidence(n, windowDays int) float64 {
	c := float64(n) / 50
	if c > 1 {
		c = 1
	}
	if windowDays < 7 {
		c *= 0.8
	}
	if windowDays > 60 {
		c *= 0.9
	}
	if c < confidenceFloor {
		c = confidenceFloor
	}
	return c
}

// dailyVolatility buckets records by calendar day and returns the
// population standard deviation of daily success rates. Requires at
// least two days of data; otherwise 0.
//
// Using the population deviation keeps the index within [0, 0.5] for
// any binary daily series.
func dailyVolatility(in []results.TestResultRecord) float64 {
	type tally struct{ passed, total int }
	days := map[string]*tally{}
	var order []string
	for _, r := range in {
		day := r.Timestamp.UTC().Format("2006-01-02")
		t, ok := days[day]
		if !ok {
			t = &tally{}
			days[day] = t
			order = append(order, day)
		}
		t.total++
		if r.Status == results.StatusPassed {
			t.passed++
		}
	}
	if len(order) < 2 {
		return 0
	}
	rates := make([]float64, 0, len(order))
	for _, day := range order {
		t := days[day]
		rates = append(rates, float64(t.passed)/float64(t.total))
	}
	return stat.PopStdDev(rates, nil)
}

// streaks returns the longest consecutive-failure and
// consecutive-success runs via a single forward scan. A skip breaks
// both runs.
func streaks(in []results.TestResultRecord) (maxFail, maxPass int) {
	curFail, curPass := 0, 0
	for _, r := range in {
		switch r.Status {
		case results.StatusFailed:
			curFail++
			curPass = 0
		case results.StatusPassed:
			curPass++
			curFail = 0
		default:
			curFail, curPass = 0, 0
		}
		if curFail > maxFail {
			maxFail = curFail
		}
		if curPass > maxPass {
			maxPass = curPass
		}
	}
	return
}

// avgRecoveryHours averages, over every failure, the elapsed hours to
// the next chronologically later success. Failures that never recover
// contribute nothing; 0 if no failure recovered.
func avgRecoveryHours(in []results.TestResultRecord) float64 {
	var total float64
	var n int
	for i, r := range in {
		if r.Status != results.StatusFailed {
			continue
		}
		for j := i + 1; j < len(in); j++ {
			if in[j].Status == results.StatusPassed {
				total += in[j].Timestamp.Sub(r.Timestamp).Hours()
				n++
				break
			}
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// timeToStabilize scans backward for the most recent run of at least
// stabilizeRunLength consecutive passes and reports whole days since
// that run started, or -1 when the test has not yet stabilized.
func timeToStabilize(in []results.TestResultRecord, now time.Time) int {
	runEnd := len(in)
	for i := len(in) - 1; i >= 0; i-- {
		if in[i].Status == results.StatusPassed {
			continue
		}
		if runEnd-(i+1) >= stabilizeRunLength {
			return daysSince(in[i+1].Timestamp, now)
		}
		runEnd = i
	}
	if runEnd >= stabilizeRunLength {
		return daysSince(in[0].Timestamp, now)
	}
	return -1
}

func daysSince(t, now time.Time) int {
	d := int(now.Sub(t).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return d
}

// classifyTrend compares the success rates of the two halves of the
// window. Requires at least 10 records; fewer defaults to stable.
func classifyTrend(in []results.TestResultRecord, volatility float64) Trend {
	if len(in) < 10 {
		return TrendStable
	}
	if volatility > 0.3 {
		return TrendVolatile
	}
	mid := len(in) / 2
	delta := successRate(in[mid:]) - successRate(in[:mid])
	switch {
	case delta > 0.15:
		return TrendImproving
	case delta < -0.15:
		return TrendDegrading
	default:
		return TrendStable
	}
}

func successRate(in []results.TestResultRecord) float64 {
	if len(in) == 0 {
		return 0
	}
	passed := 0
	for _, r := range in {
		if r.Status == results.StatusPassed {
			passed++
		}
	}
	return float64(passed) / float64(len(in))
}

func capped(v, cap float64) float64 {
	if v > cap {
		return cap
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
