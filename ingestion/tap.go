// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ingestion

import (
	"bufio"
	"context"
	"regexp"
	"strings"

	"testreliability/results"
)

var (
	// tapPlanRE matches a TAP plan line, e.g. "1..4".
	tapPlanRE = regexp.MustCompile(`^\d+\.\.\d+$`)

	// tapTestRE matches a TAP test line: "ok 1 description" or
	// "not ok 2 - description". The point number and description are
	// both optional per the protocol.
	tapTestRE = regexp.MustCompile(`^(ok|not ok)\b\s*(\d+)?\s*[-:]?\s*(.*)$`)

	// tapSkipRE matches a trailing SKIP directive in the description.
	tapSkipRE = regexp.MustCompile(`(?i)#\s*skip`)
)

type tapParser struct{}

func (*tapParser) format() results.Format { return results.FormatTAP }

// matches requires a plan line and at least one ok/not ok line.
func (*tapParser) matches(content string) bool {
	foundPlan, foundTest := false, false
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case tapPlanRE.MatchString(line):
			foundPlan = true
		case tapTestRE.MatchString(line):
			foundTest = true
		}
		if foundPlan && foundTest {
			return true
		}
	}
	return false
}

func (*tapParser) parse(ctx context.Context, content string) ([]results.TestResultRecord, *float64) {
	var recs []results.TestResultRecord
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		m := tapTestRE.FindStringSubmatch(line)
		if m == nil {
			// Plan lines, version lines, comments and bail-outs carry no
			// per-test information.
			continue
		}

		desc := strings.TrimSpace(m[3])
		status := results.StatusPassed
		if m[1] == "not ok" {
			status = results.StatusFailed
		}
		// A trailing "# SKIP" directive overrides either outcome.
		if loc := tapSkipRE.FindStringIndex(desc); loc != nil {
			status = results.StatusSkipped
			desc = strings.TrimSpace(desc[:loc[0]])
		}
		if desc == "" {
			desc = strings.TrimSpace("test " + m[2])
		}

		recs = append(recs, results.TestResultRecord{
			TestName: desc,
			Status:   status,
		})
	}
	return recs, nil
}
