package dicomio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Metadata holds the handful of tags the index needs to place an image in the
// Subject/Study/Series tree. An empty field means the tag was absent.
type Metadata struct {
	PatientID         string `json:"patient_id"`
	StudyInstanceUID  string `json:"study_instance_uid"`
	StudyDate         string `json:"study_date"`
	StudyTime         string `json:"study_time"`
	StudyDescription  string `json:"study_description"`
	SeriesInstanceUID string `json:"series_instance_uid"`
	SeriesNumber      string `json:"series_number"`
	SeriesDescription string `json:"series_description"`
	SequenceName      string `json:"sequence_name"`
	ProtocolName      string `json:"protocol_name"`
	InstanceNumber    string `json:"instance_number"`
	AcquisitionDate   string `json:"acquisition_date"`
	AcquisitionTime   string `json:"acquisition_time"`
}

// Reader supplies metadata for a DICOM file.
type Reader interface {
	ReadMetadata(path string) (*Metadata, error)
}

// FileReader parses DICOM files from disk.
type FileReader struct{}

func (FileReader) ReadMetadata(path string) (*Metadata, error) {
	dataset, err := safelyParseFile(path)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("reading dicom %s: %w", path, err))
	}
	return FromDataset(dataset), nil
}

// safelyParseFile turns panics raised by the dicom library into errors.
func safelyParseFile(path string) (dataset dicom.Dataset, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	return dicom.ParseFile(path, nil, dicom.SkipPixelData())
}

// FromDataset extracts Metadata from an already parsed dataset.
func FromDataset(dataset dicom.Dataset) *Metadata {
	return &Metadata{
		PatientID:         elementString(dataset, tag.PatientID),
		StudyInstanceUID:  elementString(dataset, tag.StudyInstanceUID),
		StudyDate:         elementString(dataset, tag.StudyDate),
		StudyTime:         elementString(dataset, tag.StudyTime),
		StudyDescription:  elementString(dataset, tag.StudyDescription),
		SeriesInstanceUID: elementString(dataset, tag.SeriesInstanceUID),
		SeriesNumber:      elementString(dataset, tag.SeriesNumber),
		SeriesDescription: elementString(dataset, tag.SeriesDescription),
		SequenceName:      elementString(dataset, tag.SequenceName),
		ProtocolName:      elementString(dataset, tag.ProtocolName),
		InstanceNumber:    elementString(dataset, tag.InstanceNumber),
		AcquisitionDate:   elementString(dataset, tag.AcquisitionDate),
		AcquisitionTime:   elementString(dataset, tag.AcquisitionTime),
	}
}

// elementString returns the first value of the element as a trimmed string,
// or "" when the tag is missing or holds no text-like value.
func elementString(dataset dicom.Dataset, t tag.Tag) string {
	element, err := dataset.FindElementByTag(t)
	if err != nil || element == nil || element.Value == nil {
		return ""
	}

	switch element.Value.ValueType() {
	case dicom.Strings:
		values := dicom.MustGetStrings(element.Value)
		if len(values) == 0 {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(values[0], "\x00"))
	case dicom.Ints:
		values := dicom.MustGetInts(element.Value)
		if len(values) == 0 {
			return ""
		}
		return strconv.Itoa(values[0])
	}
	return ""
}

// MapReader serves metadata from memory, keyed by path.
type MapReader map[string]*Metadata

func (m MapReader) ReadMetadata(path string) (*Metadata, error) {
	md, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("no metadata for %s", path)
	}
	copied := *md
	return &copied, nil
}
