package index

import (
	"errors"
	"strings"

	"ikh/weasel-index/internal/models"
)

type Level int

const (
	LevelNone Level = iota
	LevelSubject
	LevelStudy
	LevelSeries
	LevelImage
)

// Ref addresses a node by the IDs on its path. The deepest non-empty field
// decides which level it points at.
type Ref struct {
	Subject string
	Study   string
	Series  string
	Image   string
}

func (r Ref) Level() Level {
	switch {
	case r.Image != "":
		return LevelImage
	case r.Series != "":
		return LevelSeries
	case r.Study != "":
		return LevelStudy
	case r.Subject != "":
		return LevelSubject
	}
	return LevelNone
}

// Path lists the IDs from the subject down to the node.
func (r Ref) Path() []string {
	path := []string{r.Subject, r.Study, r.Series, r.Image}
	return path[:r.Level()]
}

func (r Ref) String() string {
	return strings.Join(r.Path(), "/")
}

func (idx *Index) SetChecked(ref Ref, checked bool) error {
	subject, study, series, image, ok := idx.lookup(ref)
	if !ok {
		return notFound(ref)
	}

	flag := models.Flag(checked)
	switch ref.Level() {
	case LevelSubject:
		subject.Checked = flag
	case LevelStudy:
		study.Checked = flag
	case LevelSeries:
		series.Checked = flag
	case LevelImage:
		image.Checked = flag
	}
	return nil
}

func (idx *Index) SetExpanded(ref Ref, expanded bool) error {
	if ref.Level() == LevelImage {
		return ErrNoExpandedState
	}
	subject, study, series, _, ok := idx.lookup(ref)
	if !ok {
		return notFound(ref)
	}

	flag := models.Flag(expanded)
	switch ref.Level() {
	case LevelSubject:
		subject.Expanded = flag
	case LevelStudy:
		study.Expanded = flag
	case LevelSeries:
		series.Expanded = flag
	}
	return nil
}

// Checked holds every checked node, per level, in document order.
type Checked struct {
	Images   []Ref
	Series   []Ref
	Studies  []Ref
	Subjects []Ref
}

func (idx *Index) CheckedLists() Checked {
	var c Checked
	for _, subject := range idx.root.Subjects {
		if subject.Checked {
			c.Subjects = append(c.Subjects, Ref{Subject: subject.ID})
		}
		for _, study := range subject.Studies {
			if study.Checked {
				c.Studies = append(c.Studies, Ref{Subject: subject.ID, Study: study.ID})
			}
			for _, series := range study.Series {
				ref := Ref{Subject: subject.ID, Study: study.ID, Series: series.ID}
				if series.Checked {
					c.Series = append(c.Series, ref)
				}
				for _, image := range series.Images {
					if image.Checked {
						imageRef := ref
						imageRef.Image = image.Name
						c.Images = append(c.Images, imageRef)
					}
				}
			}
		}
	}
	return c
}

// ResetState unchecks every node. With resetExpanded, studies and series
// are also collapsed; subjects keep their expanded state.
func (idx *Index) ResetState(resetExpanded bool) {
	for _, subject := range idx.root.Subjects {
		subject.Checked = false
		for _, study := range subject.Studies {
			study.Checked = false
			if resetExpanded {
				study.Expanded = false
			}
			for _, series := range study.Series {
				series.Checked = false
				if resetExpanded {
					series.Expanded = false
				}
				for _, image := range series.Images {
					image.Checked = false
				}
			}
		}
	}
}

// ApplyChecked marks every listed node as checked. Missing nodes are skipped
// and reported together.
func (idx *Index) ApplyChecked(c Checked) error {
	var errs []error
	for _, refs := range [][]Ref{c.Subjects, c.Studies, c.Series, c.Images} {
		for _, ref := range refs {
			if err := idx.SetChecked(ref, true); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
