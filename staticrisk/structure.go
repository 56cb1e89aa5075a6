// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package staticrisk

import "regexp"

// decisionRE matches decision-point keywords across common test-source
// languages. Logical operators are counted separately since they are
// not word tokens.
var decisionRE = regexp.MustCompile(
	`\b(?:if|elif|for|while|case|when|catch|except|rescue)\b|\?\s*[^.:]`)

var logicalOpRE = regexp.MustCompile(`&&|\|\|`)

// scanStructure computes cyclomatic complexity, cognitive complexity
// and maximum nesting depth from blanked source (literals and comments
// replaced by spaces).
//
// This is a tolerant structural scan, not a language-specific parse:
// nesting is tracked by brace depth, and decision points are keyword
// occurrences. Malformed source cannot fail it; at worst the counts
// degrade toward zero.
func scanStructure(blanked string) (cyclomatic, cognitive, maxDepth int) {
	if len(blanked) == 0 {
		return 0, 0, 0
	}
	cyclomatic = 1

	// depthAt[i] is the brace depth in effect at byte i.
	depthAt := make([]int, len(blanked))
	depth := 0
	for i := 0; i < len(blanked); i++ {
		depthAt[i] = depth
		switch blanked[i] {
		case '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}

	count := func(re *regexp.Regexp) {
		for _, loc := range re.FindAllStringIndex(blanked, -1) {
			cyclomatic++
			// Depth 1 is the enclosing function body; anything deeper
			// adds cognitive weight.
			d := depthAt[loc[0]] - 1
			if d < 0 {
				d = 0
			}
			cognitive += 1 + d
		}
	}
	count(decisionRE)
	count(logicalOpRE)

	return cyclomatic, cognitive, maxDepth
}

// blankLiterals replaces string literal and comment contents with
// spaces, preserving length and newlines, so structural scanning does
// not trip over braces or keywords inside them.
func blankLiterals(src string) string {
	const (
		code = iota
		lineComment
		blockComment
		singleQuote
		doubleQuote
		backQuote
	)

	out := []byte(src)
	state := code
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case code:
			switch {
			case c == '/' && i+1 < len(src) && src[i+1] == '/':
				state = lineComment
				out[i] = ' '
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				state = blockComment
				out[i] = ' '
			case c == '#':
				state = lineComment
				out[i] = ' '
			case c == '\'':
				state = singleQuote
			case c == '"':
				state = doubleQuote
			case c == '`':
				state = backQuote
			}
		case lineComment:
			if c == '\n' {
				state = code
			} else {
				out[i] = ' '
			}
		case blockComment:
			if c == '/' && i >= 2 && src[i-1] == '*' {
				state = code
			}
			if c != '\n' {
				out[i] = ' '
			}
		case singleQuote, doubleQuote, backQuote:
			closer := byte('\'')
			if state == doubleQuote {
				closer = '"'
			} else if state == backQuote {
				closer = '`'
			}
			switch {
			case c == '\\' && state != backQuote:
				out[i] = ' '
				if i+1 < len(src) && src[i+1] != '\n' {
					out[i+1] = ' '
				}
				i++
			case c == closer:
				state = code
			case c == '\n' && state != backQuote:
				// Unterminated literal; resynchronize at end of line.
				state = code
			default:
				if c != '\n' {
					out[i] = ' '
				}
			}
		}
	}
	return string(out)
}
