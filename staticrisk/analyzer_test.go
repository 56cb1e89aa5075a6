// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package staticrisk

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const flakySource = `describe('checkout', () => {
  it('retries the gateway', async () => {
    setTimeout(poll, 1000);
    const res = await fetch('https://payments.example.com');
    global.lastResponse = res;
  });
  it('reads the fixture', () => {
    const data = fs.readFileSync('/tmp/fixture.json');
  });
});
`

func TestAnalyze(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := NewAnalyzer(nil)

	Convey(`empty source yields the zero vector`, t, func() {
		So(a.Analyze(ctx, ""), ShouldResemble, Features{})
		So(a.Analyze(ctx, "   \n\t"), ShouldResemble, Features{})
	})

	Convey(`identical content yields identical features`, t, func() {
		first := a.Analyze(ctx, flakySource)
		second := a.Analyze(ctx, flakySource)
		So(second, ShouldResemble, first)
		So(ContentKey(flakySource), ShouldEqual, ContentKey(flakySource))
	})

	Convey(`counts risk categories independently`, t, func() {
		f := a.Analyze(ctx, flakySource)
		So(f.TestCount, ShouldEqual, 2)
		So(f.TimingCount, ShouldEqual, 1)           // setTimeout
		So(f.HardcodedDelayCount, ShouldEqual, 1)   // setTimeout with a literal delay
		So(f.ExternalServiceCount, ShouldEqual, 1)  // fetch(
		So(f.SharedStateCount, ShouldBeGreaterThanOrEqualTo, 1)
		So(f.FilesystemCount, ShouldEqual, 1) // fs.readFileSync
		So(f.LineCount, ShouldEqual, 11)
		So(f.TimingSensitivity, ShouldAlmostEqual, 2.0/11)
	})

	Convey(`isolation score decays with violations per test`, t, func() {
		f := a.Analyze(ctx, flakySource)
		// 2 violations (shared state + filesystem) across 2 tests.
		So(f.IsolationScore, ShouldAlmostEqual, 0)

		clean := "it('adds', () => { expect(add(1, 2)).toBe(3); });\n"
		So(a.Analyze(ctx, clean).IsolationScore, ShouldEqual, 1)
	})
}

func TestScanStructure(t *testing.T) {
	t.Parallel()

	Convey(`computes complexity and nesting from blanked source`, t, func() {
		src := `function check(x, y) {
  if (x && y) {
    for (let i = 0; i < 3; i++) {
      work(i);
    }
  }
}
`
		cyclomatic, cognitive, maxDepth := scanStructure(blankLiterals(src))
		// Base 1 + if + for + &&.
		So(cyclomatic, ShouldEqual, 4)
		// if and && at function depth, for one level deeper.
		So(cognitive, ShouldEqual, 4)
		So(maxDepth, ShouldEqual, 3)
	})

	Convey(`keywords inside literals and comments do not count`, t, func() {
		src := `function f() {
  // if for while case
  log("if (broken) { for (;;) {} }");
}
`
		cyclomatic, _, maxDepth := scanStructure(blankLiterals(src))
		So(cyclomatic, ShouldEqual, 1)
		So(maxDepth, ShouldEqual, 1)
	})

	Convey(`malformed source degrades instead of failing`, t, func() {
		cyclomatic, cognitive, maxDepth := scanStructure(blankLiterals("}}}{{{ if ("))
		So(cyclomatic, ShouldBeGreaterThanOrEqualTo, 1)
		So(cognitive, ShouldBeGreaterThanOrEqualTo, 0)
		So(maxDepth, ShouldBeGreaterThanOrEqualTo, 0)
	})
}

// spyCache records cache traffic for assertions.
type spyCache struct {
	store map[string]Features
	gets  int
	puts  int
}

func (s *spyCache) Get(_ context.Context, key string) (Features, bool) {
	s.gets++
	f, ok := s.store[key]
	return f, ok
}

func (s *spyCache) Put(_ context.Context, key string, f Features) {
	s.puts++
	s.store[key] = f
}

func TestFeatureCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	Convey(`a cache hit skips recomputation`, t, func() {
		spy := &spyCache{store: map[string]Features{}}
		a := NewAnalyzer(spy)

		first := a.Analyze(ctx, flakySource)
		So(spy.puts, ShouldEqual, 1)

		second := a.Analyze(ctx, flakySource)
		So(second, ShouldResemble, first)
		So(spy.puts, ShouldEqual, 1)
		So(spy.gets, ShouldEqual, 2)
	})

	Convey(`the LRU cache round-trips features`, t, func() {
		a := NewAnalyzer(NewLRUCache(16))
		first := a.Analyze(ctx, flakySource)
		So(a.Analyze(ctx, flakySource), ShouldResemble, first)
	})
}
