// Package index keeps the Subject/Study/Series/Image tree that describes a
// folder of DICOM files, along with the checked/expanded state shown by the
// tree view. The tree is loaded from and saved to an XML document.
//
// An Index is not safe for concurrent use. It has a single owner; code that
// feeds it from background goroutines must hand results back under a lock.
package index

import (
	"slices"
	"time"

	"ikh/weasel-index/internal/dicomio"
	"ikh/weasel-index/internal/models"
)

type Index struct {
	// Clock stamps images inserted without a time/date. Defaults to time.Now.
	Clock func() time.Time

	reader   dicomio.Reader
	path     string
	parsedOK bool
	root     *models.Root

	tables
}

// tables gives O(1) access to each node by its parent and ID. They are built
// on load and kept in step by every mutation.
type tables struct {
	subjects map[string]*models.Subject
	studies  map[*models.Subject]map[string]*models.Study
	series   map[*models.Study]map[string]*models.Series
	images   map[*models.Series]map[string]*models.Image
}

func newTables() tables {
	return tables{
		subjects: make(map[string]*models.Subject),
		studies:  make(map[*models.Subject]map[string]*models.Study),
		series:   make(map[*models.Study]map[string]*models.Series),
		images:   make(map[*models.Series]map[string]*models.Image),
	}
}

// New returns an empty index. reader supplies DICOM metadata for inserted
// images.
func New(reader dicomio.Reader) *Index {
	return &Index{
		reader:   reader,
		parsedOK: true,
		root:     &models.Root{},
		tables:   newTables(),
	}
}

// Parse loads the index document at path.
func Parse(path string, reader dicomio.Reader) (*Index, error) {
	idx := New(reader)
	if err := idx.Reload(path); err != nil {
		return nil, err
	}
	return idx, nil
}

// Path is the document the index was loaded from or last saved to.
func (idx *Index) Path() string {
	return idx.path
}

// ParsedOK reports whether the last load succeeded.
func (idx *Index) ParsedOK() bool {
	return idx.parsedOK
}

// Root exposes the tree for rendering. Callers must not change IDs or add
// and remove nodes directly.
func (idx *Index) Root() *models.Root {
	return idx.root
}

func (idx *Index) now() time.Time {
	if idx.Clock != nil {
		return idx.Clock()
	}
	return time.Now()
}

func (idx *Index) addSubject(subject *models.Subject) error {
	if subject.ID == "" {
		return ErrMissingID
	}
	if _, ok := idx.subjects[subject.ID]; ok {
		return duplicate(Ref{Subject: subject.ID})
	}
	idx.root.Subjects = append(idx.root.Subjects, subject)
	idx.subjects[subject.ID] = subject
	return nil
}

func (idx *Index) addStudy(subject *models.Subject, study *models.Study) error {
	if study.ID == "" {
		return ErrMissingID
	}
	children := idx.studies[subject]
	if children == nil {
		children = make(map[string]*models.Study)
		idx.studies[subject] = children
	}
	if _, ok := children[study.ID]; ok {
		return duplicate(Ref{Subject: subject.ID, Study: study.ID})
	}
	subject.Studies = append(subject.Studies, study)
	children[study.ID] = study
	return nil
}

func (idx *Index) addSeries(subject *models.Subject, study *models.Study, series *models.Series) error {
	if series.ID == "" {
		return ErrMissingID
	}
	children := idx.series[study]
	if children == nil {
		children = make(map[string]*models.Series)
		idx.series[study] = children
	}
	if _, ok := children[series.ID]; ok {
		return duplicate(Ref{Subject: subject.ID, Study: study.ID, Series: series.ID})
	}
	study.Series = append(study.Series, series)
	children[series.ID] = series
	return nil
}

func (idx *Index) addImage(subject *models.Subject, study *models.Study, series *models.Series, image *models.Image) error {
	if image.Name == "" {
		return ErrMissingID
	}
	children := idx.images[series]
	if children == nil {
		children = make(map[string]*models.Image)
		idx.images[series] = children
	}
	if _, ok := children[image.Name]; ok {
		return duplicate(Ref{Subject: subject.ID, Study: study.ID, Series: series.ID, Image: image.Name})
	}
	series.Images = append(series.Images, image)
	children[image.Name] = image
	return nil
}

func (idx *Index) dropSubject(subject *models.Subject) {
	idx.root.Subjects = slices.DeleteFunc(idx.root.Subjects, func(s *models.Subject) bool { return s == subject })
	delete(idx.subjects, subject.ID)
	for _, study := range subject.Studies {
		idx.forgetStudy(study)
	}
	delete(idx.studies, subject)
}

func (idx *Index) dropStudy(subject *models.Subject, study *models.Study) {
	subject.Studies = slices.DeleteFunc(subject.Studies, func(s *models.Study) bool { return s == study })
	delete(idx.studies[subject], study.ID)
	idx.forgetStudy(study)
}

func (idx *Index) dropSeries(study *models.Study, series *models.Series) {
	study.Series = slices.DeleteFunc(study.Series, func(s *models.Series) bool { return s == series })
	delete(idx.series[study], series.ID)
	delete(idx.images, series)
}

func (idx *Index) dropImage(series *models.Series, image *models.Image) {
	series.Images = slices.DeleteFunc(series.Images, func(i *models.Image) bool { return i == image })
	delete(idx.images[series], image.Name)
}

func (idx *Index) forgetStudy(study *models.Study) {
	for _, series := range study.Series {
		delete(idx.images, series)
	}
	delete(idx.series, study)
}
