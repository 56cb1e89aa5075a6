// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package patterns

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/sync/parallel"

	"testreliability/results"
	"testreliability/stability"
	"testreliability/staticrisk"
)

const (
	// costPerFailureUSD is the fixed per-incident cost proxy: roughly
	// fifteen minutes of engineer triage per failed execution.
	costPerFailureUSD = 15.0

	// analysisTTL is how long a computed analysis is served before a
	// read triggers recomputation.
	analysisTTL = 24 * time.Hour

	// gatherWorkers bounds concurrent per-project record fetches.
	gatherWorkers = 8
)

// Summary aggregates one organization-wide analysis pass.
type Summary struct {
	// ProjectCount is the organization's project count; AnalyzedProjects
	// excludes projects whose data was unreachable this pass.
	ProjectCount     int `json:"projectCount"`
	AnalyzedProjects int `json:"analyzedProjects"`
	// FailingTests is the number of test identities with at least one
	// failure in the window; TotalFailures counts failed executions.
	FailingTests  int `json:"failingTests"`
	TotalFailures int `json:"totalFailures"`
	// TotalEstimatedCostUSD sums the cost proxy over all failures.
	TotalEstimatedCostUSD float64 `json:"totalEstimatedCostUsd"`
}

// Analysis is the result of one organization-wide pattern detection
// pass.
type Analysis struct {
	OrgID       string    `json:"orgId"`
	WindowDays  int       `json:"windowDays"`
	GeneratedAt time.Time `json:"generatedAt"`

	// Patterns is sorted for "critical" surfacing: severity rank first,
	// confidence second, pattern ID as the stable tie-break.
	Patterns        []*DetectedPattern     `json:"patterns"`
	Summary         Summary                `json:"summary"`
	Recommendations []stability.Annotation `json:"recommendations"`
}

// resolution is the terminal state recorded for a resolved pattern. It
// survives recomputation so the engine never reopens a pattern.
type resolution struct {
	at    time.Time
	notes string
}

// Detector computes and caches organization-wide pattern analyses.
type Detector struct {
	src DataSource

	mu       sync.Mutex
	analyses map[string]*Analysis
	known    map[string]*DetectedPattern
	resolved map[string]resolution
}

// NewDetector returns a Detector reading from src.
func NewDetector(src DataSource) *Detector {
	return &Detector{
		src:      src,
		analyses: map[string]*Analysis{},
		known:    map[string]*DetectedPattern{},
		resolved: map[string]resolution{},
	}
}

// Analyze returns the organization's pattern analysis for the trailing
// time window, recomputing when no analysis newer than analysisTTL
// exists.
//
// A missing organization yields a NotFoundTag error. Individual
// projects whose data cannot be read are logged and excluded from the
// pass rather than aborting it.
func (d *Detector) Analyze(ctx context.Context, orgID string, windowDays int) (*Analysis, error) {
	now := clock.Now(ctx).UTC()

	d.mu.Lock()
	if a, ok := d.analyses[orgID]; ok && a.WindowDays == windowDays && now.Sub(a.GeneratedAt) < analysisTTL {
		d.mu.Unlock()
		return a, nil
	}
	d.mu.Unlock()

	a, err := d.compute(ctx, orgID, windowDays, now)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// Re-apply terminal resolution state before publishing.
	for _, p := range a.Patterns {
		if res, ok := d.resolved[p.ID]; ok {
			markResolved(p, res)
		}
		d.known[p.ID] = p
	}
	d.analyses[orgID] = a
	return a, nil
}

// Resolve marks a pattern resolved with the given notes. Resolution is
// one-way and idempotent: resolving an already-resolved pattern is a
// no-op, not an error. An unknown pattern ID yields a NotFoundTag
// error.
func (d *Detector) Resolve(ctx context.Context, patternID, notes string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.resolved[patternID]; ok {
		return nil
	}
	p, ok := d.known[patternID]
	if !ok {
		return errors.Reason("pattern %q not found", patternID).Tag(NotFoundTag).Err()
	}
	res := resolution{at: clock.Now(ctx).UTC(), notes: notes}
	d.resolved[patternID] = res
	markResolved(p, res)
	return nil
}

func markResolved(p *DetectedPattern, res resolution) {
	p.Resolved = true
	at := res.at
	p.ResolvedAt = &at
	p.ResolutionNotes = res.notes
}

// categoryEvidence accumulates cross-repository evidence for one risk
// category during a pass.
type categoryEvidence struct {
	repos       stringset.Set
	failures    int
	confidences []float64
}

func (d *Detector) compute(ctx context.Context, orgID string, windowDays int, now time.Time) (*Analysis, error) {
	projects, err := d.src.Projects(ctx, orgID)
	if err != nil {
		return nil, errors.Annotate(err, "failed to list projects of organization %q", orgID).Err()
	}

	since := now.AddDate(0, 0, -windowDays)
	perProject := make([][]results.TestResultRecord, len(projects))
	available := make([]bool, len(projects))
	_ = parallel.WorkPool(gatherWorkers, func(work chan<- func() error) {
		for i, p := range projects {
			i, p := i, p
			work <- func() error {
				recs, err := d.src.Records(ctx, p, since)
				if err != nil {
					logging.Warningf(ctx, "excluding project %q from pattern analysis: %s", p, err)
					return nil
				}
				perProject[i] = recs
				available[i] = true
				return nil
			}
		}
	})

	a := &Analysis{
		OrgID:       orgID,
		WindowDays:  windowDays,
		GeneratedAt: now,
	}
	a.Summary.ProjectCount = len(projects)

	evidence := map[staticrisk.Category]*categoryEvidence{}
	for i, project := range projects {
		if !available[i] {
			continue
		}
		a.Summary.AnalyzedProjects++
		d.accumulateProject(ctx, project, perProject[i], windowDays, evidence, &a.Summary)
	}

	a.Patterns = buildPatterns(orgID, evidence, now)
	a.Summary.TotalEstimatedCostUSD = costPerFailureUSD * float64(a.Summary.TotalFailures)
	a.Recommendations = recommend(a)
	return a, nil
}

// accumulateProject classifies the project's failing tests into risk
// categories and folds them into the running evidence.
func (d *Detector) accumulateProject(ctx context.Context, project string, recs []results.TestResultRecord, windowDays int, evidence map[staticrisk.Category]*categoryEvidence, sum *Summary) {
	byTest := map[results.TestKey][]results.TestResultRecord{}
	for _, r := range recs {
		byTest[r.Key()] = append(byTest[r.Key()], r)
	}

	for _, testRecs := range byTest {
		failures := 0
		cats := stringset.New(0)
		for _, r := range testRecs {
			if r.Status != results.StatusFailed {
				continue
			}
			failures++
			for _, c := range classifyFailure(r.TestName + "\n" + r.ErrorMessage + "\n" + r.StackTrace) {
				cats.Add(string(c))
			}
		}
		if failures == 0 {
			continue
		}
		sum.FailingTests++
		sum.TotalFailures += failures

		// Confidence of the underlying per-test signal comes from the
		// stability engine, so sparse evidence stays low-weight here the
		// same way it does in reports.
		score := stability.Compute(ctx, testRecs, windowDays)
		for _, c := range cats.ToSlice() {
			ev, ok := evidence[staticrisk.Category(c)]
			if !ok {
				ev = &categoryEvidence{repos: stringset.New(1)}
				evidence[staticrisk.Category(c)] = ev
			}
			ev.repos.Add(project)
			ev.failures += failures
			ev.confidences = append(ev.confidences, score.Confidence)
		}
	}
}

// buildPatterns turns accumulated evidence into DetectedPatterns. A
// category qualifies only when it recurs in at least two repositories
// within the window, so the affected set is never empty (nor a
// singleton).
func buildPatterns(orgID string, evidence map[staticrisk.Category]*categoryEvidence, now time.Time) []*DetectedPattern {
	var out []*DetectedPattern
	for category, ev := range evidence {
		if ev.repos.Len() < 2 {
			continue
		}
		var confSum float64
		for _, c := range ev.confidences {
			confSum += c
		}
		confidence := confSum / float64(len(ev.confidences))

		p := &DetectedPattern{
			ID:               patternID(orgID, category),
			OrgID:            orgID,
			Type:             category,
			Confidence:       confidence,
			AffectedRepos:    ev.repos.ToSortedSlice(),
			FailureCount:     ev.failures,
			EstimatedCostUSD: costPerFailureUSD * float64(ev.failures),
			DetectedAt:       now,
		}
		p.Severity = severityFor(len(p.AffectedRepos), confidence, ev.failures)
		for _, text := range remediations[category] {
			p.Remediations = append(p.Remediations, stability.Annotation{
				Severity: string(p.Severity),
				Text:     text,
			})
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if severityRank[out[i].Severity] != severityRank[out[j].Severity] {
			return severityRank[out[i].Severity] > severityRank[out[j].Severity]
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// recommend generates organization-level advisory text from the pass.
func recommend(a *Analysis) []stability.Annotation {
	if len(a.Patterns) == 0 {
		if a.Summary.TotalFailures == 0 {
			return []stability.Annotation{{
				Severity: "info",
				Text:     "No failing tests in the window; nothing to correlate.",
			}}
		}
		return []stability.Annotation{{
			Severity: "info",
			Text:     "Failures do not form a cross-repository pattern; investigate per project.",
		}}
	}

	var recs []stability.Annotation
	top := a.Patterns[0]
	recs = append(recs, stability.Annotation{
		Severity: string(top.Severity),
		Text: "Highest-impact pattern: " + string(top.Type) + " failures recur in " +
			humanize.Comma(int64(len(top.AffectedRepos))) + " repositories; fix the shared cause once.",
	})
	recs = append(recs, stability.Annotation{
		Severity: "info",
		Text: "Estimated cost of flaky failures in the window: $" +
			humanize.Commaf(a.Summary.TotalEstimatedCostUSD) + ".",
	})
	return recs
}
