// Package progress estimates job completion from free-form worker logs.
package progress

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ratioPattern       = regexp.MustCompile(`(\d{1,3})\s*/\s*(\d{1,3})`)
	percentPattern     = regexp.MustCompile(`(\d{1,3})\s*%`)
	strictRatioPattern = regexp.MustCompile(`(\d{1,3})/(\d{1,3})`)
	ansiPattern        = regexp.MustCompile("\x1b\\[[0-9;]*m")
)

// Parse returns the most recent progress percentage found in logs. The
// boolean is false when no line carries a recognizable figure; callers must
// not treat that as 0%.
//
// Lines are scanned newest first. Carriage returns count as line breaks so
// terminal progress bars that overwrite themselves resolve to their last
// frame.
func Parse(logs string) (int, bool) {
	if logs == "" {
		return 0, false
	}
	lines := strings.Split(strings.TrimSpace(strings.ReplaceAll(logs, "\r", "\n")), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if pct, ok := parseLine(lines[i]); ok {
			return pct, true
		}
	}
	return 0, false
}

func parseLine(line string) (int, bool) {
	if m := ratioPattern.FindStringSubmatch(line); m != nil {
		return ratio(m[1], m[2]), true
	}
	if m := percentPattern.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[1])
		return min(n, 100), true
	}
	clean := ansiPattern.ReplaceAllString(line, "")
	if clean == line {
		return 0, false
	}
	if m := strictRatioPattern.FindStringSubmatch(clean); m != nil {
		return ratio(m[1], m[2]), true
	}
	return 0, false
}

// ratio computes round(100*current/total) clamped to 100. A zero total is
// read as 100, mirroring tqdm output that omits the denominator.
func ratio(current, total string) int {
	c, _ := strconv.Atoi(current)
	t, err := strconv.Atoi(total)
	if err != nil || t == 0 {
		t = 100
	}
	pct := int(math.Round(float64(c*100) / float64(t)))
	return min(pct, 100)
}
