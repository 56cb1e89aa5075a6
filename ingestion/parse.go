// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ingestion normalizes heterogeneous CI test-report artifacts
// into canonical test-result records.
//
// Parsing is lenient by design: CI artifacts are produced by many
// uncontrolled external tools, so malformed individual test cases are
// skipped and logged rather than failing the whole parse. A parse fails
// only when every parser has been attempted and none produced a single
// record.
package ingestion

import (
	"context"
	"strings"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"

	"testreliability/results"
)

// UnsupportedFormatTag marks errors returned when no parser recognized
// the artifact content. Callers should treat such errors as "no signal",
// not as a pipeline failure.
var UnsupportedFormatTag = errors.BoolTag{
	Key: errors.NewTagKey("no parser produced any record for the artifact"),
}

// parser converts one known artifact format.
type parser interface {
	// format is the tag recorded on artifacts this parser produced.
	format() results.Format
	// matches reports whether the content is plausibly in this format.
	// It must be cheap; a match does not guarantee records are produced.
	matches(content string) bool
	// parse extracts records. An empty result is not an error: the next
	// parser is tried.
	parse(ctx context.Context, content string) ([]results.TestResultRecord, *float64)
}

// parsers are attempted in this order, unless a hint reorders them.
var parsers = []parser{
	&junitParser{},
	&jsonParser{},
	&tapParser{},
}

// Parse converts raw CI test-report content into a ParsedArtifact.
//
// hint is a source-system hint (e.g. "junit", "jest", "tap") used only
// to bias the order in which formats are probed, never to gate them.
// Returns an UnsupportedFormatTag-tagged error only when no parser
// produced any record.
func Parse(ctx context.Context, hint string, raw []byte) (*results.ParsedArtifact, error) {
	content := string(raw)

	for _, p := range orderByHint(parsers, hint) {
		if !p.matches(content) {
			continue
		}
		tests, coverage := p.parse(ctx, content)
		if len(tests) == 0 {
			continue
		}
		finalizeRecords(ctx, tests)
		art := &results.ParsedArtifact{
			Format:   p.format(),
			Tests:    tests,
			Coverage: coverage,
		}
		art.Tally()
		return art, nil
	}

	return nil, errors.Reason("unsupported test report format (hint %q)", hint).
		Tag(UnsupportedFormatTag).Err()
}

// orderByHint moves the parser whose format matches the hint to the
// front. Unrecognized hints leave the order unchanged.
func orderByHint(ps []parser, hint string) []parser {
	var want results.Format
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "junit", "xml", "xunit":
		want = results.FormatJUnit
	case "json", "jest", "mocha", "vitest":
		want = results.FormatJSON
	case "tap":
		want = results.FormatTAP
	default:
		return ps
	}

	ordered := make([]parser, 0, len(ps))
	for _, p := range ps {
		if p.format() == want {
			ordered = append(ordered, p)
		}
	}
	for _, p := range ps {
		if p.format() != want {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// finalizeRecords stamps ingestion time on records whose format carried
// no timestamp, and assigns retry ordinals to repeated identities.
func finalizeRecords(ctx context.Context, recs []results.TestResultRecord) {
	now := clock.Now(ctx).UTC()
	seen := map[results.TestKey]int{}
	for i := range recs {
		if recs[i].Timestamp.IsZero() {
			recs[i].Timestamp = now
		}
		k := recs[i].Key()
		recs[i].RetryAttempt = seen[k]
		seen[k]++
	}
}
