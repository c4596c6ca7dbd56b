// Package annot defines the layout-annotation data model and its JSON
// persisted form.
package annot

import (
	"math"

	"github.com/google/uuid"
)

// Type is a layout-element category. The set is closed: values outside the
// declared constants fail validation.
type Type string

const (
	Title         Type = "Title"
	SectionHeader Type = "Section header"
	TextBlock     Type = "Text"
	Picture       Type = "Picture"
	Table         Type = "Table"
	ListItem      Type = "List item"
	Formula       Type = "Formula"
	Footnote      Type = "Footnote"
	PageHeader    Type = "Page header"
	PageFooter    Type = "Page footer"
	Caption       Type = "Caption"
)

var knownTypes = map[Type]bool{
	Title:         true,
	SectionHeader: true,
	TextBlock:     true,
	Picture:       true,
	Table:         true,
	ListItem:      true,
	Formula:       true,
	Footnote:      true,
	PageHeader:    true,
	PageFooter:    true,
	Caption:       true,
}

// Valid reports whether t is one of the declared categories.
func (t Type) Valid() bool {
	return knownTypes[t]
}

// Types returns the closed set of categories in declaration order.
func Types() []Type {
	return []Type{
		Title, SectionHeader, TextBlock, Picture, Table,
		ListItem, Formula, Footnote, PageHeader, PageFooter, Caption,
	}
}

// Annotation is a typed rectangular region on one page of a document.
// Left/Top/Width/Height are expressed in the unit space described by
// PageWidth/PageHeight: the pixel dimensions of the render surface the
// annotation was authored against.
type Annotation struct {
	ID         string  `json:"id"`
	Left       float64 `json:"left"`
	Top        float64 `json:"top"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageNumber int     `json:"page_number"`
	PageWidth  float64 `json:"page_width"`
	PageHeight float64 `json:"page_height"`
	Text       string  `json:"text"`
	Type       Type    `json:"type"`
}

// NewID returns a fresh unique annotation id.
func NewID() string {
	return uuid.NewString()
}

// Normalize folds negative extents back to positive ones. The rectangle a
// user drags out is direction-independent, so a negative width or height is
// never meaningful.
func (a *Annotation) Normalize() {
	a.Width = math.Abs(a.Width)
	a.Height = math.Abs(a.Height)
}

// Validate checks the schema invariants: a known category, a positive
// 1-based page number and positive authored page dimensions. Geometry
// fields only need to be finite; Normalize handles sign.
func (a Annotation) Validate() error {
	if !a.Type.Valid() {
		return &FieldError{Field: "type", Reason: "unknown category " + string(a.Type)}
	}
	if a.PageNumber < 1 {
		return &FieldError{Field: "page_number", Reason: "must be a positive integer"}
	}
	if a.PageWidth <= 0 || a.PageHeight <= 0 {
		return &FieldError{Field: "page_width", Reason: "page dimensions must be positive"}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"left", a.Left}, {"top", a.Top}, {"width", a.Width}, {"height", a.Height},
		{"page_width", a.PageWidth}, {"page_height", a.PageHeight},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &FieldError{Field: f.name, Reason: "must be a finite number"}
		}
	}
	return nil
}

// FieldError describes a single schema violation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return "annot: invalid " + e.Field + ": " + e.Reason
}

// StripIDs returns a copy of items with ids removed, matching the schema
// expected by downstream training pipelines.
func StripIDs(items []Annotation) []Annotation {
	out := make([]Annotation, len(items))
	copy(out, items)
	for i := range out {
		out[i].ID = ""
	}
	return out
}
