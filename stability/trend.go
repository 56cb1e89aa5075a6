// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package stability

import (
	"context"
	"fmt"
	"time"

	"go.chromium.org/luci/common/clock"
	"gonum.org/v1/gonum/stat"

	"testreliability/results"
)

// Interval is a calendar bucketing granularity for trend analysis.
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

// peakFactor flags a day/hour as a seasonality peak when its failure
// rate exceeds this multiple of the mean across all days/hours.
const peakFactor = 1.5

// TrendPoint is one calendar bucket of a trend curve.
type TrendPoint struct {
	// Start is the inclusive start of the bucket.
	Start time.Time `json:"start"`
	// Score is 100 x the bucket's success rate (100 for empty buckets:
	// no failures observed).
	Score float64 `json:"score"`
	// Total and Failed count the bucket's executions.
	Total  int `json:"total"`
	Failed int `json:"failed"`
}

// SeasonalPeak marks a recurring time-of-week or time-of-day failure
// concentration, surfaced as candidate root-cause timing.
type SeasonalPeak struct {
	// Kind is "day-of-week" or "hour-of-day".
	Kind string `json:"kind"`
	// Label names the peak slot, e.g. "Monday" or "hour 14".
	Label string `json:"label"`
	// FailureRate is the slot's failure rate; Mean the rate across all
	// slots with data.
	FailureRate float64 `json:"failureRate"`
	Mean        float64 `json:"mean"`
}

// TrendAnalysis is the result of bucketed trend computation for one
// test or project series.
type TrendAnalysis struct {
	Interval Interval     `json:"interval"`
	Points   []TrendPoint `json:"points"`
	// ChangeRate is (last bucket score - first bucket score) divided by
	// the bucket count.
	ChangeRate float64 `json:"changeRate"`
	// Volatility is the standard deviation of bucket scores.
	Volatility float64 `json:"volatility"`
	// Peaks are seasonality findings over the raw records.
	Peaks []SeasonalPeak `json:"peaks,omitempty"`
}

// AnalyzeTrend buckets records into the trailing `buckets` intervals
// ending now and computes the trend curve, its linear change rate and
// volatility, and day-of-week/hour-of-day seasonality peaks.
func AnalyzeTrend(ctx context.Context, records []results.TestResultRecord, interval Interval, buckets int) TrendAnalysis {
	now := clock.Now(ctx).UTC()
	ta := TrendAnalysis{Interval: interval}
	if buckets <= 0 {
		return ta
	}

	span := intervalDuration(interval)
	start := now.Add(-time.Duration(buckets) * span)

	points := make([]TrendPoint, buckets)
	for i := range points {
		points[i].Start = start.Add(time.Duration(i) * span)
	}
	for _, r := range records {
		t := r.Timestamp.UTC()
		if t.Before(start) || t.After(now) {
			continue
		}
		i := int(t.Sub(start) / span)
		if i >= buckets {
			i = buckets - 1
		}
		points[i].Total++
		if r.Status == results.StatusFailed {
			points[i].Failed++
		}
	}

	scores := make([]float64, buckets)
	for i := range points {
		points[i].Score = bucketScore(points[i])
		scores[i] = points[i].Score
	}
	ta.Points = points
	ta.ChangeRate = (scores[buckets-1] - scores[0]) / float64(buckets)
	if buckets >= 2 {
		ta.Volatility = stat.PopStdDev(scores, nil)
	}
	ta.Peaks = seasonalPeaks(records)
	return ta
}

func bucketScore(p TrendPoint) float64 {
	if p.Total == 0 {
		return 100
	}
	return 100 * float64(p.Total-p.Failed) / float64(p.Total)
}

func intervalDuration(i Interval) time.Duration {
	switch i {
	case IntervalWeekly:
		return 7 * 24 * time.Hour
	case IntervalMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// seasonalPeaks groups failures by day-of-week and hour-of-day and
// flags slots whose failure rate exceeds peakFactor times the mean
// across slots.
func seasonalPeaks(records []results.TestResultRecord) []SeasonalPeak {
	var dayTotal, dayFailed [7]int
	var hourTotal, hourFailed [24]int
	for _, r := range records {
		t := r.Timestamp.UTC()
		dayTotal[int(t.Weekday())]++
		hourTotal[t.Hour()]++
		if r.Status == results.StatusFailed {
			dayFailed[int(t.Weekday())]++
			hourFailed[t.Hour()]++
		}
	}

	var peaks []SeasonalPeak
	peaks = append(peaks, groupPeaks("day-of-week", dayTotal[:], dayFailed[:], func(i int) string {
		return time.Weekday(i).String()
	})...)
	peaks = append(peaks, groupPeaks("hour-of-day", hourTotal[:], hourFailed[:], func(i int) string {
		return fmt.Sprintf("hour %02d", i)
	})...)
	return peaks
}

func groupPeaks(kind string, totals, failed []int, label func(int) string) []SeasonalPeak {
	var rates []float64
	for i := range totals {
		if totals[i] > 0 {
			rates = append(rates, float64(failed[i])/float64(totals[i]))
		}
	}
	if len(rates) == 0 {
		return nil
	}
	mean := stat.Mean(rates, nil)
	if mean == 0 {
		return nil
	}

	var peaks []SeasonalPeak
	for i := range totals {
		if totals[i] == 0 {
			continue
		}
		rate := float64(failed[i]) / float64(totals[i])
		if rate > peakFactor*mean {
			peaks = append(peaks, SeasonalPeak{
				Kind:        kind,
				Label:       label(i),
				FailureRate: rate,
				Mean:        mean,
			})
		}
	}
	return peaks
}
