// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package patterns correlates flaky-test evidence across all
// repositories of an organization into named, severity-ranked patterns
// and tracks their resolution.
package patterns

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"testreliability/stability"
	"testreliability/staticrisk"
)

// Severity ranks a detected pattern. Higher rank means more urgent.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for deterministic sorting.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// DetectedPattern is a correlation unit spanning multiple repositories
// within one organization.
//
// The affected-repository set is never empty. Once resolved, a pattern
// is terminal: the engine never reopens it.
type DetectedPattern struct {
	// ID is stable for a given organization and pattern type, so
	// resolution state survives recomputation.
	ID string `json:"id"`
	// OrgID is the owning organization.
	OrgID string `json:"orgId"`
	// Type is the risk category, shared with the static analyzer.
	Type staticrisk.Category `json:"type"`

	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
	// AffectedRepos is the sorted set of repository identifiers the
	// pattern recurs in; always at least two.
	AffectedRepos []string `json:"affectedRepos"`
	// FailureCount is the number of contributing failed executions.
	FailureCount int `json:"failureCount"`
	// EstimatedCostUSD is a fixed per-incident cost proxy summed over
	// contributing failures.
	EstimatedCostUSD float64 `json:"estimatedCostUsd"`
	// Remediations is advisory text, not executable policy.
	Remediations []stability.Annotation `json:"remediations,omitempty"`

	DetectedAt time.Time `json:"detectedAt"`

	// Resolution state. Resolving is the only permitted mutation and is
	// one-way.
	Resolved        bool       `json:"resolved"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	ResolutionNotes string     `json:"resolutionNotes,omitempty"`
}

// patternID derives the stable pattern identifier from the organization
// and category, in the 16-byte hex form used for cluster identifiers.
func patternID(orgID string, category staticrisk.Category) string {
	h := sha256.Sum256([]byte(orgID + "\x00" + string(category)))
	return hex.EncodeToString(h[:16])
}

// severityFor derives severity from the breadth of the repository
// overlap and the aggregate confidence of the underlying signals.
func severityFor(repoCount int, confidence float64, failureCount int) Severity {
	switch {
	case repoCount >= 5 && confidence >= 0.6:
		return SeverityCritical
	case repoCount >= 3 || failureCount >= 50:
		return SeverityHigh
	case confidence >= 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
