// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package staticrisk derives flakiness-risk feature vectors from test
// source text without executing it.
//
// The analysis is advisory, not correctness-critical: malformed or
// unrecognizable source never yields an error, only a zeroed vector.
// Feature extraction is deterministic, so identical content always
// yields identical features and results can be cached by content hash.
package staticrisk

// Features is the fixed-shape feature vector derived from one source
// file. It is a pure function of the file content.
type Features struct {
	// CyclomaticComplexity counts decision points, starting from 1.
	CyclomaticComplexity int `json:"cyclomaticComplexity"`
	// CognitiveComplexity counts the same decision points weighted by
	// the nesting depth at which they occur.
	CognitiveComplexity int `json:"cognitiveComplexity"`
	// MaxNestingDepth is the deepest block nesting observed.
	MaxNestingDepth int `json:"maxNestingDepth"`
	// LineCount is the total number of source lines.
	LineCount int `json:"lineCount"`
	// TestCount is the number of test declarations recognized.
	TestCount int `json:"testCount"`

	// Per-category occurrence counts from the textual pattern battery.
	// Categories are scanned independently; overlapping matches across
	// categories are expected and not deduplicated.
	TimingCount          int `json:"timingCount"`
	ExternalServiceCount int `json:"externalServiceCount"`
	FilesystemCount      int `json:"filesystemCount"`
	AsyncRaceCount       int `json:"asyncRaceCount"`
	SharedStateCount     int `json:"sharedStateCount"`
	HardcodedDelayCount  int `json:"hardcodedDelayCount"`
	DatabaseCount        int `json:"databaseCount"`
	ResourceCount        int `json:"resourceCount"`

	// IsolationScore is max(0, 1 - violations/testCount), where a
	// violation is any shared-state, filesystem or database occurrence.
	IsolationScore float64 `json:"isolationScore"`
	// TimingSensitivity is timing occurrences (including hardcoded
	// delays) divided by the line count.
	TimingSensitivity float64 `json:"timingSensitivity"`
}
