// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ingestion

import (
	"context"
	"encoding/json"
	"strings"

	"go.chromium.org/luci/common/logging"

	"testreliability/results"
)

// runnerResults represents structured test-runner output: a document
// with testResults[].assertionResults[] (the Jest summary shape).
type runnerResults struct {
	TestResults []struct {
		TestFilePath     string            `json:"testFilePath"`
		Name             string            `json:"name"`
		AssertionResults []assertionResult `json:"assertionResults"`
	} `json:"testResults"`
	Coverage *float64 `json:"coverage"`
}

type assertionResult struct {
	Title           string   `json:"title"`
	FullName        string   `json:"fullName"`
	AncestorTitles  []string `json:"ancestorTitles"`
	Status          string   `json:"status"`
	Duration        *float64 `json:"duration"`
	FailureMessages []string `json:"failureMessages"`
}

// genericResult is the flat-array fallback shape: [{name,status,...}].
type genericResult struct {
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Duration *float64 `json:"duration"`
	Suite    string   `json:"suite"`
	Error    string   `json:"error"`
}

// statusSynonyms normalizes the status vocabulary of generic runners.
// Unrecognized strings deliberately default to failed, to surface
// anomalies rather than hide them.
var statusSynonyms = map[string]results.Status{
	"pass":     results.StatusPassed,
	"passed":   results.StatusPassed,
	"success":  results.StatusPassed,
	"ok":       results.StatusPassed,
	"fail":     results.StatusFailed,
	"failed":   results.StatusFailed,
	"failure":  results.StatusFailed,
	"error":    results.StatusFailed,
	"skip":     results.StatusSkipped,
	"skipped":  results.StatusSkipped,
	"ignored":  results.StatusSkipped,
	"disabled": results.StatusSkipped,
	"pending":  results.StatusSkipped,
}

type jsonParser struct{}

func (*jsonParser) format() results.Format { return results.FormatJSON }

func (*jsonParser) matches(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return false
	}
	return json.Valid([]byte(trimmed))
}

func (p *jsonParser) parse(ctx context.Context, content string) ([]results.TestResultRecord, *float64) {
	trimmed := strings.TrimSpace(content)
	if trimmed[0] == '[' {
		return p.parseGeneric(ctx, trimmed), nil
	}
	return p.parseRunner(ctx, trimmed)
}

// parseRunner handles the testResults[].assertionResults[] shape.
func (*jsonParser) parseRunner(ctx context.Context, content string) ([]results.TestResultRecord, *float64) {
	var doc runnerResults
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		logging.Warningf(ctx, "json: document does not decode as runner output: %s", err)
		return nil, nil
	}

	var recs []results.TestResultRecord
	for _, tr := range doc.TestResults {
		for _, a := range tr.AssertionResults {
			name := a.FullName
			if name == "" {
				name = a.Title
			}
			if name == "" {
				logging.Warningf(ctx, "json: skipping assertion without a name in %q", tr.TestFilePath)
				continue
			}

			r := results.TestResultRecord{
				TestName: name,
				Status:   runnerStatus(a.Status),
			}
			if len(a.AncestorTitles) > 0 {
				r.Suite = strings.Join(a.AncestorTitles, " > ")
			}
			if a.Duration != nil {
				r.DurationMs = results.Duration(int64(*a.Duration))
			}
			if r.Status == results.StatusFailed && len(a.FailureMessages) > 0 {
				r.ErrorMessage = strings.Join(a.FailureMessages, "\n")
			}
			recs = append(recs, r)
		}
	}
	return recs, doc.Coverage
}

// runnerStatus maps structured-runner statuses: passed stays passed,
// pending means skipped, anything else is a failure.
func runnerStatus(s string) results.Status {
	switch strings.ToLower(s) {
	case "passed":
		return results.StatusPassed
	case "pending", "skipped", "todo":
		return results.StatusSkipped
	default:
		return results.StatusFailed
	}
}

// parseGeneric handles a flat array of {name,status} objects.
func (*jsonParser) parseGeneric(ctx context.Context, content string) []results.TestResultRecord {
	var items []genericResult
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		logging.Warningf(ctx, "json: document does not decode as a result array: %s", err)
		return nil
	}

	var recs []results.TestResultRecord
	for i, item := range items {
		if item.Name == "" {
			logging.Warningf(ctx, "json: skipping nameless entry %d", i)
			continue
		}

		status, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(item.Status))]
		if !ok {
			status = results.StatusFailed
		}
		r := results.TestResultRecord{
			TestName:     item.Name,
			Suite:        item.Suite,
			Status:       status,
			ErrorMessage: item.Error,
		}
		if item.Duration != nil {
			r.DurationMs = results.Duration(int64(*item.Duration))
		}
		recs = append(recs, r)
	}
	return recs
}
