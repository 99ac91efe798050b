package index

import (
	"fmt"

	"github.com/carbocation/pfx"
)

// RenameSubject changes a subject's ID. Its studies are untouched.
func (idx *Index) RenameSubject(subjectID, newID string) error {
	subject, ok := idx.subjects[subjectID]
	if !ok {
		return notFound(Ref{Subject: subjectID})
	}
	if newID == subjectID {
		return nil
	}
	if newID == "" {
		return ErrMissingID
	}
	if _, clash := idx.subjects[newID]; clash {
		return duplicate(Ref{Subject: newID})
	}

	delete(idx.subjects, subjectID)
	subject.ID = newID
	idx.subjects[newID] = subject
	return nil
}

func (idx *Index) RenameStudy(subjectID, studyID, newID string) error {
	subject, ok := idx.subjects[subjectID]
	if !ok {
		return notFound(Ref{Subject: subjectID, Study: studyID})
	}
	siblings := idx.studies[subject]
	study, ok := siblings[studyID]
	if !ok {
		return notFound(Ref{Subject: subjectID, Study: studyID})
	}
	if newID == studyID {
		return nil
	}
	if newID == "" {
		return ErrMissingID
	}
	if _, clash := siblings[newID]; clash {
		return duplicate(Ref{Subject: subjectID, Study: newID})
	}

	delete(siblings, studyID)
	study.ID = newID
	siblings[newID] = study
	return nil
}

func (idx *Index) RenameSeries(subjectID, studyID, seriesID, newID string) error {
	study, ok := idx.Study(subjectID, studyID)
	if !ok {
		return notFound(Ref{Subject: subjectID, Study: studyID, Series: seriesID})
	}
	siblings := idx.series[study]
	series, ok := siblings[seriesID]
	if !ok {
		return notFound(Ref{Subject: subjectID, Study: studyID, Series: seriesID})
	}
	if newID == seriesID {
		return nil
	}
	if newID == "" {
		return ErrMissingID
	}
	if _, clash := siblings[newID]; clash {
		return duplicate(Ref{Subject: subjectID, Study: studyID, Series: newID})
	}

	delete(siblings, seriesID)
	series.ID = newID
	siblings[newID] = series
	return nil
}

// RenameSeriesFromDataset renames a series to "<number>_<name>". An empty
// number or name is taken from the DICOM data of the series' first image.
// It returns the new series ID.
func (idx *Index) RenameSeriesFromDataset(subjectID, studyID, seriesID, number, name string) (string, error) {
	if number == "" || name == "" {
		images := idx.ImagePathList(subjectID, studyID, seriesID)
		if len(images) == 0 {
			return "", notFound(Ref{Subject: subjectID, Study: studyID, Series: seriesID})
		}
		md, err := idx.reader.ReadMetadata(images[0])
		if err != nil {
			return "", pfx.Err(err)
		}
		if number == "" {
			number = md.SeriesNumber
		}
		if name == "" {
			name = seriesName(md)
		}
	}

	newID := fmt.Sprintf("%s_%s", number, name)
	if err := idx.RenameSeries(subjectID, studyID, seriesID, newID); err != nil {
		return "", err
	}
	return newID, nil
}
