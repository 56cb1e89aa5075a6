// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ingestion

import (
	"context"
	"encoding/xml"
	"strconv"
	"strings"

	"go.chromium.org/luci/common/logging"

	"testreliability/results"
)

// junitSuites represents a <testsuites> document root. A bare
// <testsuite> root is handled separately in parse.
type junitSuites struct {
	XMLName xml.Name     `xml:"testsuites"`
	Suites  []junitSuite `xml:"testsuite"`
}

// junitSuite represents one <testsuite> element. Suites may nest, so
// the element refers to itself.
type junitSuite struct {
	Name   string       `xml:"name,attr"`
	Time   string       `xml:"time,attr"`
	Cases  []junitCase  `xml:"testcase"`
	Suites []junitSuite `xml:"testsuite"`
}

// junitCase represents one <testcase> element.
//
// A <failure> or <error> child marks the case failed; a <skipped> child
// marks it skipped; absence of all three marks it passed.
type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failures  []junitDetail `xml:"failure"`
	Errors    []junitDetail `xml:"error"`
	Skipped   *junitDetail  `xml:"skipped"`
}

// junitDetail is the payload of a failure/error/skipped child: a short
// message attribute plus a free-form body (typically a stack trace).
type junitDetail struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

type junitParser struct{}

func (*junitParser) format() results.Format { return results.FormatJUnit }

// matches probes for testsuite/testcase structure rather than trusting
// a file extension.
func (*junitParser) matches(content string) bool {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "<") {
		return false
	}
	return strings.Contains(trimmed, "<testsuite") && strings.Contains(trimmed, "<testcase")
}

func (*junitParser) parse(ctx context.Context, content string) ([]results.TestResultRecord, *float64) {
	var suites []junitSuite

	var root junitSuites
	if err := xml.Unmarshal([]byte(content), &root); err == nil {
		suites = root.Suites
	} else {
		// Not a <testsuites> wrapper; try a bare <testsuite> root.
		var single junitSuite
		if err := xml.Unmarshal([]byte(content), &single); err != nil {
			logging.Warningf(ctx, "junit: unparseable XML document: %s", err)
			return nil, nil
		}
		suites = []junitSuite{single}
	}

	var recs []results.TestResultRecord
	for i := range suites {
		recs = appendSuite(ctx, recs, &suites[i])
	}
	return recs, nil
}

// appendSuite converts one suite (and its nested suites) into records.
func appendSuite(ctx context.Context, recs []results.TestResultRecord, s *junitSuite) []results.TestResultRecord {
	for _, c := range s.Cases {
		if c.Name == "" {
			// A testcase without a name has no identity; skip it.
			logging.Warningf(ctx, "junit: skipping nameless testcase in suite %q", s.Name)
			continue
		}

		r := results.TestResultRecord{
			TestName: c.Name,
			Suite:    c.ClassName,
			Status:   results.StatusPassed,
		}
		// Classname falls back to the enclosing suite name when absent.
		if r.Suite == "" {
			r.Suite = s.Name
		}
		if ms, ok := secondsToMs(c.Time); ok {
			r.DurationMs = results.Duration(ms)
		}

		switch {
		case len(c.Failures) > 0 || len(c.Errors) > 0:
			r.Status = results.StatusFailed
			d := firstDetail(c)
			r.ErrorMessage = d.Message
			r.StackTrace = strings.TrimSpace(d.Body)
			if r.ErrorMessage == "" {
				r.ErrorMessage = r.StackTrace
			}
		case c.Skipped != nil:
			r.Status = results.StatusSkipped
		}

		recs = append(recs, r)
	}

	for i := range s.Suites {
		recs = appendSuite(ctx, recs, &s.Suites[i])
	}
	return recs
}

// firstDetail returns the first failure detail, preferring <failure>
// children over <error> children.
func firstDetail(c junitCase) junitDetail {
	if len(c.Failures) > 0 {
		return c.Failures[0]
	}
	return c.Errors[0]
}

// secondsToMs converts a JUnit time attribute (seconds, possibly
// fractional) to integer milliseconds.
func secondsToMs(attr string) (int64, bool) {
	if attr == "" {
		return 0, false
	}
	sec, err := strconv.ParseFloat(strings.TrimSpace(attr), 64)
	if err != nil || sec < 0 {
		return 0, false
	}
	return int64(sec * 1000), true
}
