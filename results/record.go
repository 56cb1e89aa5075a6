// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package results defines the canonical test-result record shape shared
// by the ingestion, stability and pattern-detection packages.
package results

import (
	"time"
)

// Status is the canonical outcome of one test execution.
type Status string

const (
	// StatusPassed indicates the test completed successfully.
	StatusPassed Status = "passed"
	// StatusFailed indicates the test completed with a failure or error.
	StatusFailed Status = "failed"
	// StatusSkipped indicates the test was not executed.
	StatusSkipped Status = "skipped"
)

// TestKey identifies one test across executions. Records with equal keys
// refer to the same logical test; the key is never reused across
// unrelated tests.
type TestKey struct {
	// Project is the project the test belongs to.
	Project string `json:"project"`
	// TestName is the name of the test as reported by the test runner.
	TestName string `json:"testName"`
	// Suite is the suite or class qualifier, if the runner reported one.
	Suite string `json:"suite,omitempty"`
}

// TestResultRecord is one execution of one test within one run.
//
// Records are immutable once created; they are produced only by the
// ingestion package or a manual-submission path and never updated.
type TestResultRecord struct {
	// Project is the project the execution belongs to.
	Project string `json:"project,omitempty"`
	// TestName is the name of the executed test.
	TestName string `json:"testName"`
	// Suite is the suite or class qualifier, if any.
	Suite string `json:"suite,omitempty"`
	// Status is the canonical outcome.
	Status Status `json:"status"`
	// DurationMs is the execution time in milliseconds, if reported.
	// Zero and absent are not distinguished by most CI formats, so a
	// pointer keeps "not reported" representable.
	DurationMs *int64 `json:"durationMs,omitempty"`
	// ErrorMessage is the failure message. Present only on failure.
	ErrorMessage string `json:"errorMessage,omitempty"`
	// StackTrace is the failure stack trace or output body, if any.
	StackTrace string `json:"stackTrace,omitempty"`
	// RetryAttempt is the 0-based ordinal of this attempt within its run.
	RetryAttempt int `json:"retryAttempt"`
	// Timestamp is when the execution happened (or when the artifact was
	// ingested, for formats that do not carry timestamps).
	Timestamp time.Time `json:"timestamp"`
}

// Key returns the identity triple of the record.
func (r *TestResultRecord) Key() TestKey {
	return TestKey{Project: r.Project, TestName: r.TestName, Suite: r.Suite}
}

// Duration returns a ms duration pointer, for use in record literals.
func Duration(ms int64) *int64 {
	return &ms
}
