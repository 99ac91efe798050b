package index

import "ikh/weasel-index/internal/models"

// Counts sizes the tree view before it is rendered.
type Counts struct {
	Subjects int `json:"subjects"`
	Studies  int `json:"studies"`
	Series   int `json:"series"`
	Images   int `json:"images"`
	Total    int `json:"total"`
}

func (idx *Index) CountItems() Counts {
	var c Counts
	for _, subject := range idx.root.Subjects {
		c.Subjects++
		for _, study := range subject.Studies {
			c.Studies++
			for _, series := range study.Series {
				c.Series++
				c.Images += len(series.Images)
			}
		}
	}
	c.Total = c.Subjects + c.Studies + c.Series + c.Images
	return c
}

func (idx *Index) Subject(subjectID string) (*models.Subject, bool) {
	subject, ok := idx.subjects[subjectID]
	return subject, ok
}

func (idx *Index) Study(subjectID, studyID string) (*models.Study, bool) {
	subject, ok := idx.subjects[subjectID]
	if !ok {
		return nil, false
	}
	study, ok := idx.studies[subject][studyID]
	return study, ok
}

func (idx *Index) Series(subjectID, studyID, seriesID string) (*models.Series, bool) {
	study, ok := idx.Study(subjectID, studyID)
	if !ok {
		return nil, false
	}
	series, ok := idx.series[study][seriesID]
	return series, ok
}

func (idx *Index) Image(subjectID, studyID, seriesID, name string) (*models.Image, bool) {
	series, ok := idx.Series(subjectID, studyID, seriesID)
	if !ok {
		return nil, false
	}
	image, ok := idx.images[series][name]
	return image, ok
}

// SubjectIDs lists subjects in document order.
func (idx *Index) SubjectIDs() []string {
	ids := make([]string, 0, len(idx.root.Subjects))
	for _, subject := range idx.root.Subjects {
		ids = append(ids, subject.ID)
	}
	return ids
}

func (idx *Index) StudyIDs(subjectID string) []string {
	subject, ok := idx.Subject(subjectID)
	if !ok {
		return []string{}
	}
	ids := make([]string, 0, len(subject.Studies))
	for _, study := range subject.Studies {
		ids = append(ids, study.ID)
	}
	return ids
}

func (idx *Index) SeriesIDs(subjectID, studyID string) []string {
	study, ok := idx.Study(subjectID, studyID)
	if !ok {
		return []string{}
	}
	ids := make([]string, 0, len(study.Series))
	for _, series := range study.Series {
		ids = append(ids, series.ID)
	}
	return ids
}

// ImagePathList returns the image names of a series in insertion order. A
// missing series yields an empty list.
func (idx *Index) ImagePathList(subjectID, studyID, seriesID string) []string {
	series, ok := idx.Series(subjectID, studyID, seriesID)
	if !ok {
		return []string{}
	}
	names := make([]string, 0, len(series.Images))
	for _, image := range series.Images {
		names = append(names, image.Name)
	}
	return names
}

// ImageParentIDs finds the series holding an image with the given name. The
// tree is scanned in document order and the first match wins; the same file
// name may legitimately appear in more than one series.
func (idx *Index) ImageParentIDs(name string) (subjectID, studyID, seriesID string, ok bool) {
	for _, subject := range idx.root.Subjects {
		for _, study := range subject.Studies {
			for _, series := range study.Series {
				if _, found := idx.images[series][name]; found {
					return subject.ID, study.ID, series.ID, true
				}
			}
		}
	}
	return "", "", "", false
}

// lookup resolves every level named by ref. Levels below the deepest
// non-empty field are nil.
func (idx *Index) lookup(ref Ref) (subject *models.Subject, study *models.Study, series *models.Series, image *models.Image, ok bool) {
	if subject, ok = idx.subjects[ref.Subject]; !ok {
		return
	}
	if ref.Study == "" && ref.Series == "" && ref.Image == "" {
		return
	}
	if study, ok = idx.studies[subject][ref.Study]; !ok {
		return
	}
	if ref.Series == "" && ref.Image == "" {
		return
	}
	if series, ok = idx.series[study][ref.Series]; !ok {
		return
	}
	if ref.Image == "" {
		return
	}
	image, ok = idx.images[series][ref.Image]
	return
}

// RefOf locates an image node by identity rather than by name, so it keeps
// finding the image after its ancestors are renamed.
func (idx *Index) RefOf(image *models.Image) (Ref, bool) {
	if image == nil {
		return Ref{}, false
	}
	for _, subject := range idx.root.Subjects {
		for _, study := range subject.Studies {
			for _, series := range study.Series {
				if idx.images[series][image.Name] == image {
					return Ref{Subject: subject.ID, Study: study.ID, Series: series.ID, Image: image.Name}, true
				}
			}
		}
	}
	return Ref{}, false
}
