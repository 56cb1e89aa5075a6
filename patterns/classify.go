// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package patterns

import (
	"regexp"

	"testreliability/staticrisk"
)

// Failure classification shares the risk-category vocabulary with the
// static analyzer, but matches failure evidence (error messages, test
// names) instead of source idioms.
var failureClassifiers = []struct {
	category staticrisk.Category
	re       *regexp.Regexp
}{
	{staticrisk.CategoryTiming, regexp.MustCompile(
		`(?i)\btimed?[ -]?out\b|\bdeadline exceeded\b|\bslow\b|\bexpired\b|\bclock\b`)},
	{staticrisk.CategoryExternalService, regexp.MustCompile(
		`(?i)\bECONNREFUSED\b|\bECONNRESET\b|\bconnection refused\b|\bsocket hang ?up\b|\b50[234]\b|\bbad gateway\b|\bservice unavailable\b|\bdns\b|\bnetwork\b`)},
	{staticrisk.CategoryFilesystem, regexp.MustCompile(
		`(?i)\bENOENT\b|\bno such file\b|\bEACCES\b|\bpermission denied\b|\bread-only file\b|\bdisk\b`)},
	{staticrisk.CategoryAsyncRace, regexp.MustCompile(
		`(?i)\brace\b|\bconcurrent(?:ly)?\b|\bunresolved promise\b|\bnot awaited\b|\bout of order\b`)},
	{staticrisk.CategorySharedState, regexp.MustCompile(
		`(?i)\balready exists\b|\bduplicate\b|\bEADDRINUSE\b|\baddress already in use\b|\bstale\b|\bleft ?over\b|\bdirty state\b`)},
	{staticrisk.CategoryDatabase, regexp.MustCompile(
		`(?i)\bdeadlock\b|\bconstraint\b|\bsql\b|\bdatabase\b|\btransaction\b|\bconnection pool\b`)},
	{staticrisk.CategoryResource, regexp.MustCompile(
		`(?i)\btoo many open files\b|\bEMFILE\b|\bbroken pipe\b|\bconnection closed\b|\bleak(?:ed|ing)?\b|\bout of memory\b`)},
}

// classifyFailure maps failure evidence to the risk categories it hits.
// A failure may match several categories; an unmatched failure yields
// nil and contributes only to aggregate totals.
func classifyFailure(evidence string) []staticrisk.Category {
	var cats []staticrisk.Category
	for _, c := range failureClassifiers {
		if c.re.MatchString(evidence) {
			cats = append(cats, c.category)
		}
	}
	return cats
}

// remediations is fixed advisory text per category, attached to
// detected patterns.
var remediations = map[staticrisk.Category][]string{
	staticrisk.CategoryTiming: {
		"Replace wall-clock waits with condition polling or injected clocks.",
		"Raise or remove fixed timeouts that assume fast infrastructure.",
	},
	staticrisk.CategoryExternalService: {
		"Stub or record-replay external HTTP dependencies in tests.",
		"Add retries with backoff at the client, not inside the tests.",
	},
	staticrisk.CategoryFilesystem: {
		"Give each test an isolated temporary directory and clean it up.",
	},
	staticrisk.CategoryAsyncRace: {
		"Await every asynchronous operation before asserting.",
		"Avoid asserting on ordering of concurrently-produced events.",
	},
	staticrisk.CategorySharedState: {
		"Randomize identifiers and ports so parallel tests cannot collide.",
		"Reset module/process state in per-test setup.",
	},
	staticrisk.CategoryDatabase: {
		"Run each test in its own transaction or schema.",
		"Eliminate fixture coupling between test files.",
	},
	staticrisk.CategoryResource: {
		"Close streams, sockets and connections in per-test teardown.",
	},
	staticrisk.CategoryHardcodedDelay: {
		"Replace fixed sleeps with readiness polling.",
	},
}
