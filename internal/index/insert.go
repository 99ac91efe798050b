package index

import (
	"fmt"
	"log"
	"strconv"

	"github.com/carbocation/pfx"

	"ikh/weasel-index/internal/dicomio"
	"ikh/weasel-index/internal/models"
)

// NewImage describes an image file to register in the tree.
type NewImage struct {
	// Path of the new DICOM file; becomes the image name.
	Path string

	// Source is an image already in the index whose subject and study are
	// used when SubjectID/StudyID are empty.
	Source string

	SubjectID string
	StudyID   string

	// Suffix is recorded as the typeID of a series created for the image.
	Suffix string

	// Overrides for the generated series, study and subject names.
	SeriesName  string
	StudyName   string
	SubjectName string

	// Label, Time and Date override the values taken from the file.
	Label string
	Time  string
	Date  string

	// StampNow uses the current time for a missing Time/Date instead of the
	// acquisition time recorded in the file.
	StampNow bool

	// Metadata, when set, is used instead of reading Path.
	Metadata *dicomio.Metadata
}

// Names overrides the generated series, study and subject IDs.
type Names struct {
	Series  string
	Study   string
	Subject string
}

// InsertImage adds an image to the series derived from its DICOM data and
// returns that series' ID. Missing ancestors are created on the way down:
// a missing series under an existing study, a missing study under an
// existing subject, and a missing subject under the root.
func (idx *Index) InsertImage(img NewImage) (string, error) {
	ref, err := idx.PlaceImage(img)
	if err != nil {
		return "", err
	}
	return ref.Series, nil
}

// PlaceImage is InsertImage returning the full location of the new image.
func (idx *Index) PlaceImage(img NewImage) (Ref, error) {
	if img.Path == "" {
		return Ref{}, fmt.Errorf("%w: image path is empty", ErrInvalidArgument)
	}
	md := img.Metadata
	if md == nil {
		var err error
		if md, err = idx.reader.ReadMetadata(img.Path); err != nil {
			return Ref{}, pfx.Err(err)
		}
	}

	subjectID, studyID := idx.targetIDs(img, md)
	if subjectID == "" {
		return Ref{}, fmt.Errorf("%w: no subject for %s", ErrMissingID, img.Path)
	}
	ref := Ref{Subject: subjectID, Study: studyID, Series: SeriesIDFor(md, img.SeriesName), Image: img.Path}
	image := idx.imageFor(img, md)

	subject, ok := idx.Subject(subjectID)
	if !ok {
		subject = &models.Subject{ID: subjectID}
		if err := idx.addSubject(subject); err != nil {
			return Ref{}, err
		}
		log.Printf("New subject created: %s", subjectID)
	}

	study, ok := idx.studies[subject][studyID]
	if !ok {
		study = &models.Study{ID: studyID, UID: md.StudyInstanceUID}
		if err := idx.addStudy(subject, study); err != nil {
			return Ref{}, err
		}
		log.Printf("New study created: %s", studyID)
	}

	series, ok := idx.series[study][ref.Series]
	if !ok {
		series = &models.Series{ID: ref.Series, TypeID: img.Suffix, UID: md.SeriesInstanceUID}
		if err := idx.addSeries(subject, study, series); err != nil {
			return Ref{}, err
		}
		log.Printf("New series created: %s", ref.Series)
	}

	if err := idx.addImage(subject, study, series, image); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

// UpdateImage refreshes the image at ref from newly read DICOM data. While
// the data still belongs to the image's series, only the label, time and
// date change and everything else about the tree is kept. Otherwise the
// image is removed from its series (cascading like RemoveImage) and placed
// again as a new image, in the same study while the StudyInstanceUID still
// matches. It returns the image's location afterwards.
func (idx *Index) UpdateImage(ref Ref, md *dicomio.Metadata) (Ref, error) {
	_, study, series, image, ok := idx.lookup(ref)
	if !ok || ref.Level() != LevelImage {
		return Ref{}, notFound(ref)
	}

	if sameSeries(series, md) {
		fresh := idx.imageFor(NewImage{Path: image.Name}, md)
		image.Label, image.Time, image.Date = fresh.Label, fresh.Time, fresh.Date
		return ref, nil
	}

	to := NewImage{Path: ref.Image, Metadata: md}
	if study.UID == md.StudyInstanceUID {
		to.SubjectID, to.StudyID = ref.Subject, ref.Study
	}
	if err := idx.RemoveImage(ref.Subject, ref.Study, ref.Series, ref.Image); err != nil {
		return Ref{}, err
	}
	moved, err := idx.PlaceImage(to)
	if err != nil {
		return Ref{}, err
	}
	log.Printf("Image %s moved from %s to %s", ref.Image, ref, moved)
	return moved, nil
}

// sameSeries matches on SeriesInstanceUID; series without UIDs on either
// side fall back to the derived series ID.
func sameSeries(series *models.Series, md *dicomio.Metadata) bool {
	if series.UID != "" || md.SeriesInstanceUID != "" {
		return series.UID == md.SeriesInstanceUID
	}
	return series.ID == SeriesIDFor(md, "")
}

func (idx *Index) targetIDs(img NewImage, md *dicomio.Metadata) (subjectID, studyID string) {
	subjectID, studyID = img.SubjectID, img.StudyID
	if (subjectID == "" || studyID == "") && img.Source != "" {
		if sourceSubject, sourceStudy, _, ok := idx.ImageParentIDs(img.Source); ok {
			if subjectID == "" {
				subjectID = sourceSubject
			}
			if studyID == "" {
				studyID = sourceStudy
			}
		}
	}

	switch {
	case img.SubjectName != "":
		subjectID = img.SubjectName
	case subjectID == "":
		subjectID = md.PatientID
	}

	switch {
	case img.StudyName != "":
		studyID = StudyIDFor(md, img.StudyName)
	case studyID == "":
		studyID = StudyIDFor(md, "")
	}
	return subjectID, studyID
}

func (idx *Index) imageFor(img NewImage, md *dicomio.Metadata) *models.Image {
	image := &models.Image{Name: img.Path, Label: img.Label, Time: img.Time, Date: img.Date}

	if image.Label == "" {
		image.Label = dicomio.PadLabel("0")
		if md.InstanceNumber != "" {
			image.Label = dicomio.PadLabel(md.InstanceNumber)
		}
	}

	now := idx.now()
	if image.Time == "" {
		if img.StampNow {
			image.Time = now.Format(dicomio.TimeLayout)
		} else {
			image.Time = dicomio.FormatTime(md.AcquisitionTime)
		}
	}
	if image.Date == "" {
		if img.StampNow {
			image.Date = now.Format(dicomio.DateLayout)
		} else {
			image.Date = dicomio.FormatDate(md.AcquisitionDate)
		}
	}
	return image
}

// InsertSeries creates the series newSeriesID in the given study and adds
// newImages to it, creating the study and subject when missing. origImages
// pairs each new image with the image it was derived from: when the original
// is in the index the new image is labelled by its InstanceNumber, otherwise
// by its position. A series of that ID that already holds images is an error;
// an empty one is reused.
func (idx *Index) InsertSeries(origImages, newImages []string, subjectID, studyID, newSeriesID, suffix string) error {
	if len(newImages) == 0 || len(origImages) != len(newImages) {
		return fmt.Errorf("%w: %d original images for %d new images", ErrInvalidArgument, len(origImages), len(newImages))
	}
	md, err := idx.reader.ReadMetadata(newImages[0])
	if err != nil {
		return pfx.Err(err)
	}

	subject, ok := idx.Subject(subjectID)
	if !ok {
		subject = &models.Subject{ID: subjectID, TypeID: suffix}
		if err := idx.addSubject(subject); err != nil {
			return err
		}
	}
	study, ok := idx.studies[subject][studyID]
	if !ok {
		study = &models.Study{ID: studyID, TypeID: suffix, UID: md.StudyInstanceUID}
		if err := idx.addStudy(subject, study); err != nil {
			return err
		}
	}

	series, ok := idx.series[study][newSeriesID]
	switch {
	case ok && len(series.Images) > 0:
		return duplicate(Ref{Subject: subjectID, Study: studyID, Series: newSeriesID})
	case ok:
		series.TypeID = suffix
		series.UID = md.SeriesInstanceUID
	default:
		series = &models.Series{ID: newSeriesID, TypeID: suffix, UID: md.SeriesInstanceUID}
		if err := idx.addSeries(subject, study, series); err != nil {
			return err
		}
	}

	now := idx.now()
	for i, name := range newImages {
		label := dicomio.PadLabel(strconv.Itoa(i + 1))
		if _, _, _, known := idx.ImageParentIDs(origImages[i]); known {
			if imd, err := idx.reader.ReadMetadata(name); err == nil && imd.InstanceNumber != "" {
				label = dicomio.PadLabel(imd.InstanceNumber)
			}
		}
		image := &models.Image{
			Label: label,
			Name:  name,
			Time:  now.Format(dicomio.TimeLayout),
			Date:  now.Format(dicomio.DateLayout),
		}
		if err := idx.addImage(subject, study, series, image); err != nil {
			return err
		}
	}
	return nil
}

// InsertNewSeries registers newImages as a new series next to the series of
// origImages[0] and returns the series ID chosen for it.
func (idx *Index) InsertNewSeries(origImages, newImages []string, suffix string, names Names) (string, error) {
	if len(origImages) == 0 || len(newImages) == 0 {
		return "", fmt.Errorf("%w: no images", ErrInvalidArgument)
	}
	md, err := idx.reader.ReadMetadata(newImages[0])
	if err != nil {
		return "", pfx.Err(err)
	}

	subjectID, studyID, _, _ := idx.ImageParentIDs(origImages[0])
	switch {
	case names.Subject != "":
		subjectID = names.Subject
	case subjectID == "":
		subjectID = md.PatientID
	}
	switch {
	case names.Study != "":
		studyID = StudyIDFor(md, names.Study)
	case studyID == "":
		studyID = StudyIDFor(md, "")
	}
	if subjectID == "" {
		return "", fmt.Errorf("%w: no subject for %s", ErrMissingID, newImages[0])
	}

	seriesID, err := idx.ResolveNewSeriesName(subjectID, studyID, md, suffix, names.Series)
	if err != nil {
		return "", err
	}
	if err := idx.InsertSeries(origImages, newImages, subjectID, studyID, seriesID, suffix); err != nil {
		return "", err
	}
	log.Printf("New series created: %s", seriesID)
	return seriesID, nil
}

// InsertStudy creates studyID under the subject, creating the subject when
// missing, and adds one series per group of image files.
func (idx *Index) InsertStudy(subjectID, studyID, suffix string, seriesGroups [][]string) error {
	if len(seriesGroups) == 0 || len(seriesGroups[0]) == 0 {
		return fmt.Errorf("%w: study %s has no images", ErrInvalidArgument, studyID)
	}
	md, err := idx.reader.ReadMetadata(seriesGroups[0][0])
	if err != nil {
		return pfx.Err(err)
	}

	subject, ok := idx.Subject(subjectID)
	if !ok {
		subject = &models.Subject{ID: subjectID, TypeID: suffix}
		if err := idx.addSubject(subject); err != nil {
			return err
		}
	}
	study := &models.Study{ID: studyID, TypeID: suffix, UID: md.StudyInstanceUID}
	if err := idx.addStudy(subject, study); err != nil {
		return err
	}

	for _, group := range seriesGroups {
		if len(group) == 0 {
			continue
		}
		gmd, err := idx.reader.ReadMetadata(group[0])
		if err != nil {
			return pfx.Err(err)
		}
		if err := idx.InsertSeries(group, group, subjectID, studyID, SeriesIDFor(gmd, ""), suffix); err != nil {
			return err
		}
	}
	log.Printf("New study created: %s", studyID)
	return nil
}

// InsertSubject creates a subject holding one study per entry of studies;
// each study is a list of series, each series a list of image files.
func (idx *Index) InsertSubject(subjectID, suffix string, studies [][][]string) error {
	subject := &models.Subject{ID: subjectID, TypeID: suffix}
	if err := idx.addSubject(subject); err != nil {
		return err
	}

	for _, study := range studies {
		if len(study) == 0 || len(study[0]) == 0 {
			continue
		}
		md, err := idx.reader.ReadMetadata(study[0][0])
		if err != nil {
			return pfx.Err(err)
		}
		if err := idx.InsertStudy(subjectID, StudyIDFor(md, ""), suffix, study); err != nil {
			return err
		}
	}
	log.Printf("New subject created: %s", subjectID)
	return nil
}
