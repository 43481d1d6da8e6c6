// Package moves turns server prompt text into selectable move options.
package moves

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

// MaxRangeOptions caps how many options a range marker can expand to.
const MaxRangeOptions = 64

var markerPhrases = []string{
	"Choose a move",
	"Select a move",
	"Available moves",
	"Choose your move",
	"(Options:",
}

var (
	rangeRe      = regexp.MustCompile(`\(Options:\s*(\d+)\s*-\s*(\d+)\s*\)`)
	lineRe       = regexp.MustCompile(`^\s*(\d+)\.\s+(.+?)\s*$`)
	leadingOneRe = regexp.MustCompile(`(?m)^\s*1\.`)
	moveWordRe   = regexp.MustCompile(`\bMove\b`)
)

// IsMoveOptions reports whether a prompt lists move options at all.
// Prompts that fail this check are plain input requests.
func IsMoveOptions(text string) bool {
	for _, m := range markerPhrases {
		if strings.Contains(text, m) {
			return true
		}
	}
	return leadingOneRe.MatchString(text) && moveWordRe.MatchString(text)
}

// Parse extracts options from a prompt. Unrecognized lines are skipped.
func Parse(text string) []types.MoveOption {
	if !strings.ContainsAny(text, "\r\n") {
		if opts, ok := parseRange(text); ok {
			return opts
		}
	}
	return parseLines(text)
}

func parseRange(text string) ([]types.MoveOption, bool) {
	m := rangeRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	lo, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false
	}
	hi, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, false
	}
	if hi < lo {
		return nil, true
	}
	if hi-lo+1 > MaxRangeOptions {
		hi = lo + MaxRangeOptions - 1
	}

	opts := make([]types.MoveOption, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		opts = append(opts, types.MoveOption{
			Number:      n,
			Description: fmt.Sprintf("Game option %d", n),
			Source:      text,
		})
	}
	return opts, true
}

func parseLines(text string) []types.MoveOption {
	var opts []types.MoveOption
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		opts = append(opts, types.MoveOption{
			Number:      n,
			Description: strings.TrimSpace(m[2]),
			Source:      line,
		})
	}
	return opts
}
