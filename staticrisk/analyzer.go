// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package staticrisk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Cache stores computed feature vectors keyed by source content hash.
//
// Caching is an optional, safe-to-invalidate optimization: the analyzer
// is a pure function of the source text, so a cache can be dropped or
// substituted at any time. Tests typically inject NopCache.
type Cache interface {
	// Get returns the cached features for key, if present.
	Get(ctx context.Context, key string) (Features, bool)
	// Put stores the features for key.
	Put(ctx context.Context, key string, f Features)
}

// NopCache is a Cache that stores nothing.
type NopCache struct{}

// Get implements Cache.
func (NopCache) Get(context.Context, string) (Features, bool) { return Features{}, false }

// Put implements Cache.
func (NopCache) Put(context.Context, string, Features) {}

// Analyzer derives Features from test source text.
type Analyzer struct {
	cache Cache
}

// NewAnalyzer returns an Analyzer using the given cache. A nil cache
// disables caching.
func NewAnalyzer(cache Cache) *Analyzer {
	if cache == nil {
		cache = NopCache{}
	}
	return &Analyzer{cache: cache}
}

// ContentKey returns the cache key for the given source text.
func ContentKey(source string) string {
	h := sha256.Sum256([]byte(source))
	return hex.EncodeToString(h[:])
}

// Analyze derives the feature vector for the given source text.
//
// It never fails: unrecognizable source yields a zeroed vector, since
// the analysis is advisory. Identical source always yields identical
// features.
func (a *Analyzer) Analyze(ctx context.Context, source string) Features {
	key := ContentKey(source)
	if f, ok := a.cache.Get(ctx, key); ok {
		return f
	}

	f := analyze(source)
	a.cache.Put(ctx, key, f)
	return f
}

func analyze(source string) Features {
	if strings.TrimSpace(source) == "" {
		return Features{}
	}

	var f Features
	f.LineCount = strings.Count(source, "\n") + 1
	f.TestCount = countMatches(testDeclRE, source)

	blanked := blankLiterals(source)
	f.CyclomaticComplexity, f.CognitiveComplexity, f.MaxNestingDepth = scanStructure(blanked)

	// The pattern battery runs over the raw source, not the blanked
	// form: a URL or SQL statement inside a string literal is exactly
	// the kind of signal it is after.
	counts := CategoryMatches(source)
	f.TimingCount = counts[CategoryTiming]
	f.ExternalServiceCount = counts[CategoryExternalService]
	f.FilesystemCount = counts[CategoryFilesystem]
	f.AsyncRaceCount = counts[CategoryAsyncRace]
	f.SharedStateCount = counts[CategorySharedState]
	f.HardcodedDelayCount = counts[CategoryHardcodedDelay]
	f.DatabaseCount = counts[CategoryDatabase]
	f.ResourceCount = counts[CategoryResource]

	violations := f.SharedStateCount + f.FilesystemCount + f.DatabaseCount
	tests := f.TestCount
	if tests < 1 {
		tests = 1
	}
	f.IsolationScore = 1 - float64(violations)/float64(tests)
	if f.IsolationScore < 0 {
		f.IsolationScore = 0
	}
	f.TimingSensitivity = float64(f.TimingCount+f.HardcodedDelayCount) / float64(f.LineCount)

	return f
}
