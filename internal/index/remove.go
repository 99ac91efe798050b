package index

import (
	"errors"
	"log"
)

// RemoveImage deletes one image. A series left without images is removed,
// and so on upwards: an emptied study goes, then an emptied subject.
func (idx *Index) RemoveImage(subjectID, studyID, seriesID, name string) error {
	ref := Ref{Subject: subjectID, Study: studyID, Series: seriesID, Image: name}
	subject, study, series, image, ok := idx.lookup(ref)
	if !ok || ref.Level() != LevelImage {
		return notFound(ref)
	}

	idx.dropImage(series, image)
	if len(series.Images) > 0 {
		return nil
	}
	idx.dropSeries(study, series)
	log.Printf("Removed empty series %s", ref.Series)
	if len(study.Series) > 0 {
		return nil
	}
	idx.dropStudy(subject, study)
	log.Printf("Removed empty study %s", ref.Study)
	if len(subject.Studies) > 0 {
		return nil
	}
	idx.dropSubject(subject)
	log.Printf("Removed empty subject %s", ref.Subject)
	return nil
}

// RemoveImageByName removes the first image with the given name, cascading
// like RemoveImage.
func (idx *Index) RemoveImageByName(name string) error {
	subjectID, studyID, seriesID, ok := idx.ImageParentIDs(name)
	if !ok {
		return notFound(Ref{Image: name})
	}
	return idx.RemoveImage(subjectID, studyID, seriesID, name)
}

// RemoveImages removes each named image, carrying on past failures.
func (idx *Index) RemoveImages(names []string) error {
	var errs []error
	for _, name := range names {
		if err := idx.RemoveImageByName(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (idx *Index) RemoveSeries(subjectID, studyID, seriesID string) error {
	ref := Ref{Subject: subjectID, Study: studyID, Series: seriesID}
	_, study, series, _, ok := idx.lookup(ref)
	if !ok || ref.Level() != LevelSeries {
		return notFound(ref)
	}
	idx.dropSeries(study, series)
	return nil
}

func (idx *Index) RemoveStudy(subjectID, studyID string) error {
	ref := Ref{Subject: subjectID, Study: studyID}
	subject, study, _, _, ok := idx.lookup(ref)
	if !ok || ref.Level() != LevelStudy {
		return notFound(ref)
	}
	idx.dropStudy(subject, study)
	return nil
}

func (idx *Index) RemoveSubject(subjectID string) error {
	subject, ok := idx.subjects[subjectID]
	if !ok {
		return notFound(Ref{Subject: subjectID})
	}
	idx.dropSubject(subject)
	return nil
}
