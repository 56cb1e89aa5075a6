// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package stability

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"testreliability/results"
)

func TestAnalyzeTrend(t *testing.T) {
	t.Parallel()

	Convey(`buckets records and computes the change rate`, t, func() {
		ctx, now := testContext()

		// Five daily buckets: all failures in the oldest bucket, all
		// passes afterwards.
		var recs []results.TestResultRecord
		for i := 0; i < 4; i++ {
			recs = append(recs, results.TestResultRecord{
				TestName:  "t",
				Status:    results.StatusFailed,
				Timestamp: now.Add(-(4*24 + time.Duration(i)) * time.Hour),
			})
		}
		for day := 0; day < 4; day++ {
			recs = append(recs, results.TestResultRecord{
				TestName:  "t",
				Status:    results.StatusPassed,
				Timestamp: now.Add(-time.Duration(day*24+1) * time.Hour),
			})
		}

		ta := AnalyzeTrend(ctx, recs, IntervalDaily, 5)
		So(ta.Points, ShouldHaveLength, 5)
		So(ta.Points[0].Score, ShouldEqual, 0)
		So(ta.Points[4].Score, ShouldEqual, 100)
		So(ta.ChangeRate, ShouldEqual, 20)
		So(ta.Volatility, ShouldBeGreaterThan, 0)
	})

	Convey(`empty buckets score 100`, t, func() {
		ctx, _ := testContext()
		ta := AnalyzeTrend(ctx, nil, IntervalWeekly, 3)
		So(ta.Points, ShouldHaveLength, 3)
		for _, p := range ta.Points {
			So(p.Score, ShouldEqual, 100)
			So(p.Total, ShouldEqual, 0)
		}
		So(ta.ChangeRate, ShouldEqual, 0)
		So(ta.Volatility, ShouldEqual, 0)
	})

	Convey(`zero requested buckets yields an empty analysis`, t, func() {
		ctx, _ := testContext()
		ta := AnalyzeTrend(ctx, nil, IntervalDaily, 0)
		So(ta.Points, ShouldBeEmpty)
	})
}

func TestSeasonalPeaks(t *testing.T) {
	t.Parallel()

	Convey(`failures concentrated on one weekday surface as a peak`, t, func() {
		ctx, now := testContext()

		// Three weeks of daily runs at a fixed hour; only Mondays fail.
		var recs []results.TestResultRecord
		for day := 0; day < 21; day++ {
			ts := now.Add(-time.Duration(day) * 24 * time.Hour)
			status := results.StatusPassed
			if ts.Weekday() == time.Monday {
				status = results.StatusFailed
			}
			recs = append(recs, results.TestResultRecord{
				TestName:  "t",
				Status:    status,
				Timestamp: ts,
			})
		}

		ta := AnalyzeTrend(ctx, recs, IntervalWeekly, 3)
		var mondayPeak *SeasonalPeak
		for i, p := range ta.Peaks {
			if p.Kind == "day-of-week" && p.Label == "Monday" {
				mondayPeak = &ta.Peaks[i]
			}
		}
		So(mondayPeak, ShouldNotBeNil)
		So(mondayPeak.FailureRate, ShouldEqual, 1)
		So(mondayPeak.FailureRate, ShouldBeGreaterThan, peakFactor*mondayPeak.Mean)
	})

	Convey(`uniform failures produce no peaks`, t, func() {
		ctx, now := testContext()
		var recs []results.TestResultRecord
		for day := 0; day < 14; day++ {
			recs = append(recs, results.TestResultRecord{
				TestName:  "t",
				Status:    results.StatusFailed,
				Timestamp: now.Add(-time.Duration(day) * 24 * time.Hour),
			})
		}
		ta := AnalyzeTrend(ctx, recs, IntervalDaily, 14)
		So(ta.Peaks, ShouldBeEmpty)
	})
}
