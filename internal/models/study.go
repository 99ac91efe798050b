package models

import "encoding/xml"

// DefaultRootName is the element name written for documents that were not
// loaded from disk.
const DefaultRootName = "DICOM"

// Root is the document element. It only ever holds subjects.
type Root struct {
	XMLName  xml.Name
	Subjects []*Subject `xml:"subject"`
}

type Subject struct {
	ID       string   `xml:"id,attr"`
	TypeID   string   `xml:"typeID,attr"`
	UID      string   `xml:"uid,attr,omitempty"`
	Checked  Flag     `xml:"checked,attr"`
	Expanded Flag     `xml:"expanded,attr"`
	Studies  []*Study `xml:"study"`
}

type Study struct {
	ID       string    `xml:"id,attr"`
	TypeID   string    `xml:"typeID,attr"`
	UID      string    `xml:"uid,attr,omitempty"`
	Checked  Flag      `xml:"checked,attr"`
	Expanded Flag      `xml:"expanded,attr"`
	Series   []*Series `xml:"series"`
}

type Series struct {
	ID       string   `xml:"id,attr"`
	TypeID   string   `xml:"typeID,attr"`
	UID      string   `xml:"uid,attr,omitempty"`
	Checked  Flag     `xml:"checked,attr"`
	Expanded Flag     `xml:"expanded,attr"`
	Images   []*Image `xml:"image"`
}

// Image is a leaf. Name is the file path and identifies the image within its
// series.
type Image struct {
	Checked Flag   `xml:"checked,attr"`
	Label   string `xml:"label"`
	Name    string `xml:"name"`
	Time    string `xml:"time"`
	Date    string `xml:"date"`
}
