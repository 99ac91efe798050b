package index

import (
	"fmt"
	"log"
	"strings"

	"ikh/weasel-index/internal/dicomio"
)

// NoSequenceName stands in for the series name when the image carries no
// description, sequence name or protocol name.
const NoSequenceName = "No Sequence Name"

const maxNameAttempts = 64

// seriesName picks the first of SeriesDescription, SequenceName and
// ProtocolName that is present.
func seriesName(md *dicomio.Metadata) string {
	switch {
	case md.SeriesDescription != "":
		return md.SeriesDescription
	case md.SequenceName != "":
		return md.SequenceName
	case md.ProtocolName != "":
		return md.ProtocolName
	}
	return NoSequenceName
}

// SeriesIDFor builds "<SeriesNumber>_<name>", preferring explicitName over
// the names found in the image.
func SeriesIDFor(md *dicomio.Metadata, explicitName string) string {
	name := explicitName
	if name == "" {
		name = seriesName(md)
	}
	return md.SeriesNumber + "_" + name
}

// StudyIDFor builds "<StudyDate>_<StudyTime>_<name>" with fractional
// seconds dropped, preferring override over the study description.
func StudyIDFor(md *dicomio.Metadata, override string) string {
	name := override
	if name == "" {
		name = md.StudyDescription
	}
	studyTime := strings.SplitN(md.StudyTime, ".", 2)[0]
	return md.StudyDate + "_" + studyTime + "_" + name
}

// ResolveNewSeriesName finds a series ID in the study that does not already
// hold images. Starting from the explicit name (or the image's own series
// name) it appends suffix until the name is free, giving up after a fixed
// number of attempts or straight away when suffix is empty.
func (idx *Index) ResolveNewSeriesName(subjectID, studyID string, md *dicomio.Metadata, suffix, explicitName string) (string, error) {
	base := explicitName
	if base == "" {
		base = seriesName(md)
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		candidate := md.SeriesNumber + "_" + base
		if len(idx.ImagePathList(subjectID, studyID, candidate)) == 0 {
			log.Printf("Resolved new series name %s", candidate)
			return candidate, nil
		}
		if suffix == "" {
			break
		}
		base += suffix
	}

	return "", fmt.Errorf("%w: %s_%s in %s", ErrNameResolutionExhausted, md.SeriesNumber, base, Ref{Subject: subjectID, Study: studyID})
}
