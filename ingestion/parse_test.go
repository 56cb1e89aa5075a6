// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ingestion

import (
	"context"
	"fmt"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.chromium.org/luci/common/clock/testclock"

	"testreliability/results"
)

func testContext() context.Context {
	ctx, _ := testclock.UseTime(context.Background(), testclock.TestRecentTimeUTC)
	return ctx
}

func TestParseJUnit(t *testing.T) {
	t.Parallel()

	ctx := testContext()

	Convey(`round-trips a synthesized suite`, t, func() {
		const failureMsg = "expected 2, got 3"
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><testsuites><testsuite name="MathSuite" time="1.5">`)
		for i := 0; i < 4; i++ {
			fmt.Fprintf(&b, `<testcase classname="MathSuite" name="passes_%d" time="0.25"/>`, i)
		}
		for i := 0; i < 2; i++ {
			fmt.Fprintf(&b, `<testcase classname="MathSuite" name="fails_%d"><failure message="%s">stack line</failure></testcase>`, i, failureMsg)
		}
		b.WriteString(`<testcase name="skips_0"><skipped/></testcase>`)
		b.WriteString(`</testsuite></testsuites>`)

		art, err := Parse(ctx, "", []byte(b.String()))
		So(err, ShouldBeNil)
		So(art.Format, ShouldEqual, results.FormatJUnit)
		So(art.Total, ShouldEqual, 7)
		So(art.Passed, ShouldEqual, 4)
		So(art.Failed, ShouldEqual, 2)
		So(art.Skipped, ShouldEqual, 1)
		for _, rec := range art.Tests {
			if rec.Status == results.StatusFailed {
				So(rec.ErrorMessage, ShouldEqual, failureMsg)
				So(rec.StackTrace, ShouldEqual, "stack line")
			}
		}
	})

	Convey(`converts seconds to milliseconds`, t, func() {
		xml := `<testsuite name="S"><testcase name="t" time="0.5"/></testsuite>`
		art, err := Parse(ctx, "junit", []byte(xml))
		So(err, ShouldBeNil)
		So(art.Tests, ShouldHaveLength, 1)
		So(art.Tests[0].DurationMs, ShouldNotBeNil)
		So(*art.Tests[0].DurationMs, ShouldEqual, 500)
	})

	Convey(`classname falls back to the suite name`, t, func() {
		xml := `<testsuite name="OuterSuite"><testcase name="t"/></testsuite>`
		art, err := Parse(ctx, "", []byte(xml))
		So(err, ShouldBeNil)
		So(art.Tests[0].Suite, ShouldEqual, "OuterSuite")
	})

	Convey(`an error child marks the case failed`, t, func() {
		xml := `<testsuite name="S"><testcase name="t"><error message="boom">trace</error></testcase></testsuite>`
		art, err := Parse(ctx, "", []byte(xml))
		So(err, ShouldBeNil)
		So(art.Tests[0].Status, ShouldEqual, results.StatusFailed)
		So(art.Tests[0].ErrorMessage, ShouldEqual, "boom")
	})

	Convey(`walks nested suites and skips nameless cases`, t, func() {
		xml := `<testsuites><testsuite name="outer"><testcase name="a"/>` +
			`<testsuite name="inner"><testcase name="b"/><testcase/></testsuite>` +
			`</testsuite></testsuites>`
		art, err := Parse(ctx, "", []byte(xml))
		So(err, ShouldBeNil)
		So(art.Total, ShouldEqual, 2)
		So(art.Tests[1].Suite, ShouldEqual, "inner")
	})

	Convey(`assigns retry ordinals to repeated identities`, t, func() {
		xml := `<testsuite name="S"><testcase name="t"><failure>f</failure></testcase><testcase name="t"/></testsuite>`
		art, err := Parse(ctx, "", []byte(xml))
		So(err, ShouldBeNil)
		So(art.Tests[0].RetryAttempt, ShouldEqual, 0)
		So(art.Tests[1].RetryAttempt, ShouldEqual, 1)
	})
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	ctx := testContext()

	Convey(`parses structured runner output`, t, func() {
		doc := `{
			"testResults": [{
				"testFilePath": "/app/form.test.js",
				"assertionResults": [
					{"fullName": "form renders", "status": "passed", "duration": 12.7},
					{"fullName": "form submits", "status": "failed", "failureMessages": ["first", "second"]},
					{"title": "form disabled state", "status": "pending"}
				]
			}],
			"coverage": 87.5
		}`
		art, err := Parse(ctx, "jest", []byte(doc))
		So(err, ShouldBeNil)
		So(art.Format, ShouldEqual, results.FormatJSON)
		So(art.Total, ShouldEqual, 3)
		So(art.Tests[0].Status, ShouldEqual, results.StatusPassed)
		So(*art.Tests[0].DurationMs, ShouldEqual, 12)
		So(art.Tests[1].Status, ShouldEqual, results.StatusFailed)
		So(art.Tests[1].ErrorMessage, ShouldEqual, "first\nsecond")
		So(art.Tests[2].Status, ShouldEqual, results.StatusSkipped)
		So(art.Coverage, ShouldNotBeNil)
		So(*art.Coverage, ShouldEqual, 87.5)
	})

	Convey(`normalizes generic array statuses via the synonym table`, t, func() {
		doc := `[
			{"name": "a", "status": "ok"},
			{"name": "b", "status": "SUCCESS"},
			{"name": "c", "status": "failure", "error": "nope"},
			{"name": "d", "status": "ignored"},
			{"name": "e", "status": "exploded"}
		]`
		art, err := Parse(ctx, "json", []byte(doc))
		So(err, ShouldBeNil)
		So(art.Passed, ShouldEqual, 2)
		So(art.Skipped, ShouldEqual, 1)
		// Unrecognized statuses fail closed.
		So(art.Failed, ShouldEqual, 2)
		So(art.Tests[2].ErrorMessage, ShouldEqual, "nope")
	})

	Convey(`skips nameless entries instead of failing`, t, func() {
		doc := `[{"status": "pass"}, {"name": "kept", "status": "pass"}]`
		art, err := Parse(ctx, "", []byte(doc))
		So(err, ShouldBeNil)
		So(art.Total, ShouldEqual, 1)
		So(art.Tests[0].TestName, ShouldEqual, "kept")
	})
}

func TestParseTAP(t *testing.T) {
	t.Parallel()

	ctx := testContext()

	Convey(`parses a minimal TAP document`, t, func() {
		art, err := Parse(ctx, "", []byte("1..2\nok 1 renders\nnot ok 2 submits form\n"))
		So(err, ShouldBeNil)
		So(art.Format, ShouldEqual, results.FormatTAP)
		So(art.Tests, ShouldHaveLength, 2)
		So(art.Tests[0].TestName, ShouldEqual, "renders")
		So(art.Tests[0].Status, ShouldEqual, results.StatusPassed)
		So(art.Tests[1].TestName, ShouldEqual, "submits form")
		So(art.Tests[1].Status, ShouldEqual, results.StatusFailed)
	})

	Convey(`a SKIP directive overrides the outcome`, t, func() {
		art, err := Parse(ctx, "tap", []byte("1..2\nok 1 fast path\nnot ok 2 slow path # SKIP flaky on arm\n"))
		So(err, ShouldBeNil)
		So(art.Tests[1].Status, ShouldEqual, results.StatusSkipped)
		So(art.Tests[1].TestName, ShouldEqual, "slow path")
	})
}

func TestParseDetection(t *testing.T) {
	t.Parallel()

	ctx := testContext()

	Convey(`unrecognized content is tagged unsupported`, t, func() {
		_, err := Parse(ctx, "", []byte("completely unstructured log output\n"))
		So(err, ShouldNotBeNil)
		So(UnsupportedFormatTag.In(err), ShouldBeTrue)
	})

	Convey(`an XML document without testcases is not claimed by junit`, t, func() {
		_, err := Parse(ctx, "junit", []byte("<report><entry/></report>"))
		So(err, ShouldNotBeNil)
		So(UnsupportedFormatTag.In(err), ShouldBeTrue)
	})

	Convey(`parsing identical bytes twice is idempotent`, t, func() {
		raw := []byte("1..2\nok 1 a\nnot ok 2 b\n")
		first, err := Parse(ctx, "", raw)
		So(err, ShouldBeNil)
		second, err := Parse(ctx, "", raw)
		So(err, ShouldBeNil)
		So(second, ShouldResemble, first)
	})
}
