// Package scoring holds the pure scoring rules: MCQ set equality,
// problem-solving all-pass, and the option-token / output comparisons
// they are built on. Nothing here touches I/O.
package scoring

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseOptionTokens parses a comma-separated list of 1-based option
// indices ("2,1" → [1 2]). Tokens must be integers in 1..4 with no
// duplicates. The returned slice is sorted.
func ParseOptionTokens(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("answer options must not be empty")
	}

	parts := strings.Split(s, ",")
	seen := make(map[int]struct{}, len(parts))
	tokens := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid option token %q", p)
		}
		if n < 1 || n > 4 {
			return nil, fmt.Errorf("option index %d out of range", n)
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("duplicate option index %d", n)
		}
		seen[n] = struct{}{}
		tokens = append(tokens, n)
	}
	sort.Ints(tokens)
	return tokens, nil
}

// ScoreMcq awards the full point value when the candidate's option set
// exactly equals the canonical set, zero otherwise. Order of tokens
// never matters; multi-select is all-or-nothing with no partial credit.
func ScoreMcq(points float64, canonical, candidate string) float64 {
	want, err := ParseOptionTokens(canonical)
	if err != nil {
		return 0
	}
	got, err := ParseOptionTokens(candidate)
	if err != nil {
		return 0
	}
	if len(want) != len(got) {
		return 0
	}
	for i := range want {
		if want[i] != got[i] {
			return 0
		}
	}
	return points
}

// OutputMatches compares runner stdout against a test case's expected
// output. Only one trailing newline is stripped from each side; interior
// whitespace stays significant.
func OutputMatches(expected, received string) bool {
	return trimTrailingNewline(expected) == trimTrailingNewline(received)
}

func trimTrailingNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// ScoreProblem awards the full point value only when every test case
// passed. An empty result set never scores.
func ScoreProblem(points float64, passed []bool) float64 {
	if len(passed) == 0 {
		return 0
	}
	for _, p := range passed {
		if !p {
			return 0
		}
	}
	return points
}
