// Package regexopt extracts literal prefixes from a regex pattern so the
// index can turn a full value-map scan into a handful of point lookups or
// bounded range scans (spec §4.5).
//
// The original this spec was distilled from (rustedPost) builds this on
// regex-syntax's internal HIR literal-prefix API and recovers the
// Cut/Complete distinction by parsing the debug-string representation of
// its output (_examples/original_source/src/backend/index.rs,
// optimize_regex) — spec §9 calls that out as something "an implementer
// should use a cleaner API if available in the target ecosystem." Go's
// regexp/syntax exposes the parsed expression tree directly, so this
// package walks that tree instead of any string-based recovery.
package regexopt

import (
	"regexp/syntax"
	"sort"
)

// maxClassRunes bounds how large a character class we will enumerate into
// single-rune branches before giving up on extending the literal further
// (a class spanning thousands of runes is cheaper to treat as "no useful
// literal here" than to expand).
const maxClassRunes = 64

// maxBranches bounds the combinatorial explosion of crossing multiple
// alternations/classes together.
const maxBranches = 4096

// Literal is one possible prefix of a string the regex can match. Cut
// means it is a strict prefix of a longer match (usable for a
// prefix-range scan); otherwise the regex can match this literal exactly,
// with nothing before or after (usable for a point lookup). Every literal
// that passed through an alternation, a character class, an optional
// element or a case-folded rune is marked Cut, even when the regex ends
// right after it.
type Literal struct {
	Cut  bool
	Text string
}

// Prefixes returns the literal prefixes extractable from pattern, or an
// empty slice if none can be extracted (e.g. ".*", an alternation with a
// branch that has no finite literal expansion, or a pattern that can match
// with an empty prefix such as "a?"). It never panics; a malformed
// pattern surfaces as the regexp/syntax parse error.
func Prefixes(pattern string) ([]Literal, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, err
	}
	re = re.Simplify()

	seq := flattenConcat(unwrapCapture(re))
	seq = stripAnchors(seq)

	branches := []string{""}
	branched := false
	terminated := true

	for _, node := range seq {
		set, nodeBranched, ok := enumerate(node)
		if !ok {
			terminated = false
			break
		}
		branches = crossProduct(branches, set)
		branched = branched || nodeBranched
		if len(branches) > maxBranches {
			terminated = false
			break
		}
	}

	if len(branches) == 1 && branches[0] == "" {
		return nil, nil
	}

	cut := branched || !terminated
	out := make([]Literal, 0, len(branches))
	seen := make(map[string]bool, len(branches))
	for _, b := range branches {
		if b == "" {
			// The regex can match without a literal prefix, so no prefix
			// set narrows the scan.
			return nil, nil
		}
		if seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, Literal{Cut: cut, Text: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out, nil
}

// unwrapCapture strips capturing-group wrappers, which carry no semantic
// weight for literal extraction.
func unwrapCapture(re *syntax.Regexp) *syntax.Regexp {
	for re.Op == syntax.OpCapture {
		re = re.Sub[0]
	}
	return re
}

// flattenConcat returns the sequence of sub-expressions making up re: its
// Sub slice if re is a concatenation, or a single-element slice otherwise.
func flattenConcat(re *syntax.Regexp) []*syntax.Regexp {
	if re.Op == syntax.OpConcat {
		out := make([]*syntax.Regexp, len(re.Sub))
		copy(out, re.Sub)
		return out
	}
	return []*syntax.Regexp{re}
}

// stripAnchors removes a leading ^ and trailing $ from a flattened
// sequence: the engine always matches the whole value against ^pattern$,
// so any anchors the caller wrote explicitly are elided (spec §4.5:
// "leading ^ is allowed and elided").
func stripAnchors(seq []*syntax.Regexp) []*syntax.Regexp {
	if len(seq) > 0 && isLineStart(seq[0]) {
		seq = seq[1:]
	}
	if len(seq) > 0 && isLineEnd(seq[len(seq)-1]) {
		seq = seq[:len(seq)-1]
	}
	return seq
}

func isLineStart(re *syntax.Regexp) bool {
	return re.Op == syntax.OpBeginLine || re.Op == syntax.OpBeginText
}

func isLineEnd(re *syntax.Regexp) bool {
	return re.Op == syntax.OpEndLine || re.Op == syntax.OpEndText
}

// enumerate fully enumerates the finite set of strings a node can
// contribute to a literal prefix, reporting whether the node branches
// (alternation or character class, as opposed to a plain literal run) and
// whether it was enumerable at all.
func enumerate(re *syntax.Regexp) (set []string, branched bool, ok bool) {
	re = unwrapCapture(re)

	switch re.Op {
	case syntax.OpEmptyMatch, syntax.OpBeginLine, syntax.OpBeginText, syntax.OpEndLine, syntax.OpEndText:
		return []string{""}, false, true

	case syntax.OpLiteral:
		return enumerateLiteral(re)

	case syntax.OpCharClass:
		return enumerateCharClass(re)

	case syntax.OpConcat:
		return enumerateConcat(re.Sub)

	case syntax.OpAlternate:
		return enumerateAlternate(re.Sub)

	case syntax.OpQuest:
		sub, _, subOK := enumerate(re.Sub[0])
		if !subOK {
			return nil, false, false
		}
		set := append([]string{""}, sub...)
		return dedupe(set), true, true

	default:
		// Star, Plus, Repeat, AnyChar, AnyCharNotNL, NoMatch, and anything
		// else is either unbounded or not a literal-bearing node.
		return nil, false, false
	}
}

func enumerateLiteral(re *syntax.Regexp) ([]string, bool, bool) {
	foldCase := re.Flags&syntax.FoldCase != 0
	branches := []string{""}
	branched := false
	for _, r := range re.Rune {
		var opts []rune
		if foldCase {
			opts = caseVariants(r)
		} else {
			opts = []rune{r}
		}
		if len(opts) > 1 {
			branched = true
		}
		strs := make([]string, len(opts))
		for i, o := range opts {
			strs[i] = string(o)
		}
		branches = crossProduct(branches, strs)
	}
	return branches, branched, true
}

func caseVariants(r rune) []rune {
	lower := toLower(r)
	upper := toUpper(r)
	if lower == upper {
		return []rune{r}
	}
	return []rune{lower, upper}
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

func enumerateCharClass(re *syntax.Regexp) ([]string, bool, bool) {
	total := 0
	for i := 0; i+1 < len(re.Rune); i += 2 {
		total += int(re.Rune[i+1]-re.Rune[i]) + 1
	}
	if total == 0 || total > maxClassRunes {
		return nil, false, false
	}
	set := make([]string, 0, total)
	for i := 0; i+1 < len(re.Rune); i += 2 {
		for r := re.Rune[i]; r <= re.Rune[i+1]; r++ {
			set = append(set, string(r))
		}
	}
	return set, true, true
}

func enumerateConcat(subs []*syntax.Regexp) ([]string, bool, bool) {
	branches := []string{""}
	branched := false
	for _, sub := range subs {
		set, subBranched, ok := enumerate(sub)
		if !ok {
			return nil, false, false
		}
		branches = crossProduct(branches, set)
		branched = branched || subBranched
		if len(branches) > maxBranches {
			return nil, false, false
		}
	}
	return branches, branched, true
}

func enumerateAlternate(subs []*syntax.Regexp) ([]string, bool, bool) {
	var all []string
	for _, sub := range subs {
		set, _, ok := enumerate(sub)
		if !ok {
			// A branch with no finite expansion puts no bound on how the
			// alternation's matches begin, so no prefix set is produced.
			return nil, false, false
		}
		all = append(all, set...)
	}
	return dedupe(all), true, true
}

func crossProduct(a, b []string) []string {
	out := make([]string, 0, len(a)*len(b))
	for _, x := range a {
		for _, y := range b {
			out = append(out, x+y)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
