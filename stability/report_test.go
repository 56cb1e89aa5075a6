// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package stability

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"testreliability/results"
)

func TestBuildReport(t *testing.T) {
	t.Parallel()

	Convey(`with a mixed project`, t, func() {
		ctx, now := testContext()

		key := func(name string) results.TestKey {
			return results.TestKey{Project: "web", TestName: name}
		}
		byTest := map[results.TestKey][]results.TestResultRecord{
			key("steady"): series(now, repeat(results.StatusPassed, 30)...),
			key("wobbly"): series(now, append(repeat(results.StatusPassed, 10), repeat(results.StatusFailed, 10)...)...),
			key("broken"): series(now, repeat(results.StatusFailed, 20)...),
			key("sparse"): series(now, results.StatusPassed),
		}

		r := BuildReport(ctx, "web", byTest, 30)

		Convey(`scores every test and fills the distribution`, func() {
			So(r.Project, ShouldEqual, "web")
			So(r.TestCount, ShouldEqual, 4)
			total := 0
			for _, n := range r.TierCounts {
				total += n
			}
			So(total, ShouldEqual, 4)
			So(r.TierCounts[TierCritical], ShouldBeGreaterThanOrEqualTo, 1)
			So(r.BandCounts[BandExcellent], ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey(`the most unstable list is worst-first`, func() {
			So(len(r.MostUnstable), ShouldBeGreaterThan, 0)
			So(r.MostUnstable[0].Key.TestName, ShouldEqual, "broken")
			for i := 1; i < len(r.MostUnstable); i++ {
				So(r.MostUnstable[i].Score.Value, ShouldBeGreaterThanOrEqualTo, r.MostUnstable[i-1].Score.Value)
			}
		})

		Convey(`critical tests produce a recommendation naming the count`, func() {
			found := false
			for _, rec := range r.Recommendations {
				if rec.Severity == "critical" && strings.Contains(rec.Text, "critical risk tier") {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey(`building twice is deterministic`, func() {
			So(BuildReport(ctx, "web", byTest, 30), ShouldResemble, r)
		})
	})

	Convey(`an empty project yields the degraded default, not an error`, t, func() {
		ctx, _ := testContext()
		r := BuildReport(ctx, "empty", nil, 30)
		So(r.TestCount, ShouldEqual, 0)
		So(r.OverallStability, ShouldEqual, 100)
		So(r.Insights, ShouldHaveLength, 1)
		So(r.Insights[0].Text, ShouldContainSubstring, "unknown")
	})

	Convey(`overall stability is confidence-weighted`, t, func() {
		ctx, now := testContext()
		byTest := map[results.TestKey][]results.TestResultRecord{
			{Project: "p", TestName: "solid"}: series(now, repeat(results.StatusPassed, 50)...),
			// One failing run: low score but near-floor confidence.
			{Project: "p", TestName: "noisy"}: series(now, results.StatusFailed),
		}
		r := BuildReport(ctx, "p", byTest, 30)
		// The confident passing test dominates the weighted mean.
		So(r.OverallStability, ShouldBeGreaterThan, 85)
	})

	Convey(`all-green projects read as excellent`, t, func() {
		ctx, now := testContext()
		byTest := map[results.TestKey][]results.TestResultRecord{
			{Project: "p", TestName: "a"}: series(now, repeat(results.StatusPassed, 20)...),
			{Project: "p", TestName: "b"}: series(now, repeat(results.StatusPassed, 20)...),
		}
		r := BuildReport(ctx, "p", byTest, 30)
		So(r.OverallStability, ShouldEqual, 100)
		So(r.ScoreQuartiles[1], ShouldEqual, 100)
		So(r.Insights[0].Text, ShouldContainSubstring, "excellent")
	})
}
