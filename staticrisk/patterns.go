// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package staticrisk

import "regexp"

// Category names the risk vocabulary shared with cross-repository
// pattern detection.
type Category string

const (
	CategoryTiming          Category = "timing-dependency"
	CategoryExternalService Category = "external-service-dependency"
	CategoryFilesystem      Category = "filesystem-dependency"
	CategoryAsyncRace       Category = "async-race-condition"
	CategorySharedState     Category = "shared-state"
	CategoryHardcodedDelay  Category = "hardcoded-delay"
	CategoryDatabase        Category = "database-dependency"
	CategoryResource        Category = "resource-lifecycle"
)

var (
	// timingRE matches timer registration and wall-clock reads.
	timingRE = regexp.MustCompile(
		`\bsetTimeout\s*\(|\bsetInterval\s*\(|\bDate\.now\s*\(|\bnew\s+Date\s*\(|\bperformance\.now\s*\(|\btime\.Now\s*\(|\btime\.Since\s*\(|\bdatetime\.now\s*\(`)

	// externalServiceRE matches HTTP client idioms.
	externalServiceRE = regexp.MustCompile(
		`\bfetch\s*\(|\baxios\b|\bXMLHttpRequest\b|\bhttp\.(?:Get|Post|Head|Do)\s*\(|\bhttp\.get\s*\(|\brequests\.(?:get|post|put|delete)\s*\(|\bsupertest\b`)

	// filesystemRE matches filesystem access idioms.
	filesystemRE = regexp.MustCompile(
		`\bfs\.\w+\s*\(|\breadFileSync\s*\(|\bwriteFileSync\s*\(|\bos\.(?:Open|Create|Remove|RemoveAll|Mkdir|MkdirAll|ReadFile|WriteFile)\s*\(|\bioutil\.(?:ReadFile|WriteFile|TempDir|TempFile)\s*\(|\bshutil\.\w+\s*\(`)

	// asyncRaceRE matches parallel-await combinators and other idioms
	// prone to ordering races.
	asyncRaceRE = regexp.MustCompile(
		`\bPromise\.(?:all|race|allSettled|any)\s*\(|\bawait\s+Promise\b|\basyncio\.gather\s*\(|\bgo\s+func\b|\bsync\.WaitGroup\b`)

	// sharedStateRE matches process/global/module-level state references.
	sharedStateRE = regexp.MustCompile(
		`\bglobal\.\w+|\bglobalThis\b|\bwindow\.\w+\s*=|\bprocess\.env\.\w+\s*=|\bmodule\.exports\b|(?m)^\s*(?:var|let)\s+\w+\s*=.*(?:\[\]|\{\})\s*;?\s*$`)

	// hardcodedDelayRE matches fixed sleeps and literal-delay timers.
	hardcodedDelayRE = regexp.MustCompile(
		`\bsleep\s*\(\s*\d|\btime\.Sleep\s*\(|\bsetTimeout\s*\([^,)]*,\s*\d+|\bdelay\s*\(\s*\d|\busleep\s*\(`)

	// databaseRE matches SQL statements and ORM/driver call idioms.
	databaseRE = regexp.MustCompile(
		`(?i)\b(?:select\s+.+\s+from|insert\s+into|update\s+\w+\s+set|delete\s+from)\b|\bdb\.(?:query|exec|Query|Exec|QueryRow)\s*\(|\bmongoose\.\w+|\bknex\s*[.(]|\bprisma\.\w+`)

	// resourceRE matches stream/socket/connection construction.
	resourceRE = regexp.MustCompile(
		`\bcreateReadStream\s*\(|\bcreateWriteStream\s*\(|\bnet\.(?:connect|createConnection|Dial)\s*\(|\bnew\s+WebSocket\s*\(|\bsql\.Open\s*\(|\bcreateConnection\s*\(|\bcreatePool\s*\(`)

	// testDeclRE recognizes test declarations across common frameworks.
	testDeclRE = regexp.MustCompile(
		`(?m)^\s*(?:it|test)\s*\(|(?m)^\s*it\.each\s*\(|\bfunc\s+Test\w+\s*\(|(?m)^\s*def\s+test_\w+|@Test\b`)
)

// categoryPatterns maps each risk category to its pattern matcher, in a
// fixed scan order.
var categoryPatterns = []struct {
	category Category
	re       *regexp.Regexp
}{
	{CategoryTiming, timingRE},
	{CategoryExternalService, externalServiceRE},
	{CategoryFilesystem, filesystemRE},
	{CategoryAsyncRace, asyncRaceRE},
	{CategorySharedState, sharedStateRE},
	{CategoryHardcodedDelay, hardcodedDelayRE},
	{CategoryDatabase, databaseRE},
	{CategoryResource, resourceRE},
}

// countMatches returns the number of non-overlapping matches of re in
// src. Matches across different categories may overlap; within one
// category regexp semantics apply.
func countMatches(re *regexp.Regexp, src string) int {
	return len(re.FindAllStringIndex(src, -1))
}

// CategoryMatches reports the per-category occurrence counts for src.
// The raw source is scanned, not the parsed structure, so string and
// comment contents count too.
func CategoryMatches(src string) map[Category]int {
	counts := make(map[Category]int, len(categoryPatterns))
	for _, cp := range categoryPatterns {
		counts[cp.category] = countMatches(cp.re, src)
	}
	return counts
}
