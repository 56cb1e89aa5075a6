// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package results

// Format identifies the source format an artifact was parsed from.
type Format string

const (
	// FormatJUnit is the JUnit XML family (testsuite/testcase elements).
	FormatJUnit Format = "junit"
	// FormatJSON covers structured test-runner JSON and the generic
	// {name,status} array fallback.
	FormatJSON Format = "json"
	// FormatTAP is the Test Anything Protocol line format.
	FormatTAP Format = "tap"
	// FormatUnknown marks content no parser recognized.
	FormatUnknown Format = "unknown"
)

// ParsedArtifact is the outcome of normalizing one CI artifact.
//
// It exists only for the duration of one parse call; callers fold the
// records into storage and discard it.
type ParsedArtifact struct {
	// Format is the detected source format.
	Format Format `json:"format"`
	// Tests are the normalized records, in source order.
	Tests []TestResultRecord `json:"tests"`
	// Total, Passed, Failed and Skipped are aggregate counts over Tests.
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	// Coverage is a percentage figure, when the artifact carried one.
	Coverage *float64 `json:"coverage,omitempty"`
}

// Tally recomputes the aggregate counts from Tests.
func (a *ParsedArtifact) Tally() {
	a.Total = len(a.Tests)
	a.Passed, a.Failed, a.Skipped = 0, 0, 0
	for _, t := range a.Tests {
		switch t.Status {
		case StatusPassed:
			a.Passed++
		case StatusFailed:
			a.Failed++
		case StatusSkipped:
			a.Skipped++
		}
	}
}
