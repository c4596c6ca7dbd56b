package canvas

import (
	"regexp"
	"sort"
	"strings"

	"github.com/docpane/layoutstudio/geom"
)

const (
	// includeTolerance lets runs that touch the selection boundary count as
	// inside it.
	includeTolerance = 2.0
	// lineEpsilon groups runs whose vertical positions differ by less than
	// this into the same visual line.
	lineEpsilon = 5.0
)

var (
	nlAndSpace    = regexp.MustCompile(`[\n\s]+`)
	spaceBefPunct = regexp.MustCompile(`\s+([.,:;!?])`)
)

// ExtractText assembles the text of the runs falling within the selection,
// ordered top-to-bottom and left-to-right within a line, joined with single
// spaces.
func ExtractText(runs []TextRun, sel geom.Rect) string {
	bound := sel.Pad(includeTolerance).R2()

	var in []TextRun
	for _, run := range runs {
		if run.Box.Width <= 0 || run.Box.Height <= 0 {
			continue
		}
		if bound.Contains(run.Box.R2()) {
			in = append(in, run)
		}
	}
	if len(in) == 0 {
		return ""
	}

	// Bucket into lines first: pairwise "close enough in top" comparison is
	// not transitive, so runs are grouped against each line's first run.
	sort.SliceStable(in, func(i, j int) bool {
		return in[i].Box.Top < in[j].Box.Top
	})
	var lines [][]TextRun
	for _, run := range in {
		if n := len(lines); n > 0 && run.Box.Top-lines[n-1][0].Box.Top < lineEpsilon {
			lines[n-1] = append(lines[n-1], run)
			continue
		}
		lines = append(lines, []TextRun{run})
	}

	parts := make([]string, 0, len(in))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].Box.Left < line[j].Box.Left
		})
		for _, run := range line {
			if t := strings.TrimSpace(run.Text); t != "" {
				parts = append(parts, t)
			}
		}
	}

	joined := nlAndSpace.ReplaceAllString(strings.Join(parts, " "), " ")
	joined = spaceBefPunct.ReplaceAllString(joined, "$1")
	return strings.TrimSpace(joined)
}
