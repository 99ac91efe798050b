package index

import (
	"fmt"
	"log"
	"math/big"

	"github.com/carbocation/pfx"
	"github.com/google/uuid"

	"ikh/weasel-index/internal/dicomio"
	"ikh/weasel-index/internal/models"
)

const (
	DefaultMergeSuffix     = "_Merged"
	DefaultMergeSeriesName = "New Series"
)

// MergeRequest gathers images already in the index into one new series.
type MergeRequest struct {
	// Images are image names; the first match for each name is used.
	Images []string

	// Target study. Empty IDs default to the parents of the first image.
	SubjectID string
	StudyID   string

	SeriesNumber string
	SeriesName   string
	Suffix       string

	// Overwrite removes the merged images from their original series.
	Overwrite bool
}

// MergeImages registers the images of req as a new series with a freshly
// generated UID and returns the new series ID.
func (idx *Index) MergeImages(req MergeRequest) (string, error) {
	if len(req.Images) == 0 {
		return "", fmt.Errorf("%w: nothing to merge", ErrInvalidArgument)
	}
	if req.Suffix == "" {
		req.Suffix = DefaultMergeSuffix
	}
	if req.SeriesName == "" {
		req.SeriesName = DefaultMergeSeriesName
	}

	sources := make([]Ref, 0, len(req.Images))
	originals := make([]*models.Image, 0, len(req.Images))
	listed := make(map[string]bool, len(req.Images))
	for _, name := range req.Images {
		if listed[name] {
			return "", fmt.Errorf("%w: %s listed twice", ErrInvalidArgument, name)
		}
		listed[name] = true
		subjectID, studyID, seriesID, ok := idx.ImageParentIDs(name)
		if !ok {
			return "", notFound(Ref{Image: name})
		}
		ref := Ref{Subject: subjectID, Study: studyID, Series: seriesID, Image: name}
		sources = append(sources, ref)
		image, _ := idx.Image(subjectID, studyID, seriesID, name)
		originals = append(originals, image)
	}

	subjectID, studyID := req.SubjectID, req.StudyID
	if subjectID == "" {
		subjectID = sources[0].Subject
	}
	if studyID == "" {
		studyID = sources[0].Study
	}
	subject, study, _, _, ok := idx.lookup(Ref{Subject: subjectID, Study: studyID})
	if !ok || study == nil {
		return "", notFound(Ref{Subject: subjectID, Study: studyID})
	}

	number := req.SeriesNumber
	if number == "" {
		md, err := idx.reader.ReadMetadata(req.Images[0])
		if err != nil {
			return "", pfx.Err(err)
		}
		number = md.SeriesNumber
	}
	named := &dicomio.Metadata{SeriesNumber: number, SeriesDescription: req.SeriesName + req.Suffix}
	seriesID, err := idx.ResolveNewSeriesName(subjectID, studyID, named, req.Suffix, "")
	if err != nil {
		return "", err
	}

	series, exists := idx.series[study][seriesID]
	if exists {
		series.TypeID = req.Suffix
		series.UID = NewUID()
	} else {
		series = &models.Series{ID: seriesID, TypeID: req.Suffix, UID: NewUID()}
		if err := idx.addSeries(subject, study, series); err != nil {
			return "", err
		}
	}
	for _, original := range originals {
		copied := *original
		copied.Checked = false
		if err := idx.addImage(subject, study, series, &copied); err != nil {
			return "", err
		}
	}

	if req.Overwrite {
		for _, ref := range sources {
			if err := idx.RemoveImage(ref.Subject, ref.Study, ref.Series, ref.Image); err != nil {
				return "", err
			}
		}
	}

	log.Printf("Merged %d images into series %s", len(originals), seriesID)
	return seriesID, nil
}

// MoveImage registers the image at from in the location described by to and
// then removes it from its old series, cascading like RemoveImage. to.Path
// is ignored; the image keeps its name. It returns the destination series ID.
func (idx *Index) MoveImage(from Ref, to NewImage) (string, error) {
	image, ok := idx.Image(from.Subject, from.Study, from.Series, from.Image)
	if !ok {
		return "", notFound(from)
	}

	to.Path = image.Name
	if to.Label == "" {
		to.Label = image.Label
	}
	if to.Time == "" {
		to.Time = image.Time
	}
	if to.Date == "" {
		to.Date = image.Date
	}

	seriesID, err := idx.InsertImage(to)
	if err != nil {
		return "", err
	}
	if err := idx.RemoveImage(from.Subject, from.Study, from.Series, from.Image); err != nil {
		return "", err
	}
	return seriesID, nil
}

// NewUID returns a DICOM UID derived from a random UUID (the 2.25 root).
func NewUID() string {
	u := uuid.New()
	return "2.25." + new(big.Int).SetBytes(u[:]).String()
}
