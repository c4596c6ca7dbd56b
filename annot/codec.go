package annot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotArray reports input whose top level is not a JSON array. This is
// the only load failure that rejects the whole file.
var ErrNotArray = errors.New("annot: input is not a JSON array")

// MaxRejectSamples caps how many rejected items a LoadReport retains
// verbatim for diagnostics.
const MaxRejectSamples = 5

// LoadReport summarizes a bulk decode: how many items were accepted, how
// many were dropped, and a few raw samples of the dropped ones. Upstream
// producers of annotation JSON are imperfect, so a handful of bad records
// must never discard the whole load.
type LoadReport struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Samples  []string `json:"samples,omitempty"`
}

func (r *LoadReport) reject(raw []byte, err error) {
	r.Rejected++
	if len(r.Samples) < MaxRejectSamples {
		r.Samples = append(r.Samples, fmt.Sprintf("%s: %v", compact(raw), err))
	}
}

func compact(raw []byte) string {
	const max = 120
	s := string(raw)
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

// DecodeList parses an annotation array with partial acceptance: items that
// fail schema validation are dropped and counted, valid items are returned
// in file order with negative extents normalized. Items missing an id keep
// an empty one; callers backfill. A non-array payload returns ErrNotArray.
func DecodeList(data []byte) ([]Annotation, *LoadReport, error) {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(data, &rawItems); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}

	report := &LoadReport{}
	items := make([]Annotation, 0, len(rawItems))

	for _, raw := range rawItems {
		var a Annotation
		if err := json.Unmarshal(raw, &a); err != nil {
			report.reject(raw, err)
			continue
		}
		a.Normalize()
		if err := a.Validate(); err != nil {
			report.reject(raw, err)
			continue
		}
		items = append(items, a)
	}

	report.Accepted = len(items)
	return items, report, nil
}

// EncodeList renders items in the persisted form: a JSON array of schema
// objects, element order carrying the reading order.
func EncodeList(items []Annotation) ([]byte, error) {
	if items == nil {
		items = []Annotation{}
	}
	return json.MarshalIndent(items, "", "  ")
}
