package export

import (
	"io"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"

	"ikh/weasel-index/internal/index"
)

// Row is one image of the index listing.
type Row struct {
	Subject   string `csv:"subject"`
	Study     string `csv:"study"`
	Series    string `csv:"series"`
	SeriesUID string `csv:"series_uid"`
	Label     string `csv:"label"`
	Name      string `csv:"name"`
	Date      string `csv:"date"`
	Time      string `csv:"time"`
	Checked   string `csv:"checked"`
}

// Rows flattens the tree in document order.
func Rows(idx *index.Index) []*Row {
	var rows []*Row
	for _, subject := range idx.Root().Subjects {
		for _, study := range subject.Studies {
			for _, series := range study.Series {
				for _, image := range series.Images {
					rows = append(rows, &Row{
						Subject:   subject.ID,
						Study:     study.ID,
						Series:    series.ID,
						SeriesUID: series.UID,
						Label:     image.Label,
						Name:      image.Name,
						Date:      image.Date,
						Time:      image.Time,
						Checked:   image.Checked.String(),
					})
				}
			}
		}
	}
	return rows
}

// WriteCSV writes one row per image, with a header, to w.
func WriteCSV(idx *index.Index, w io.Writer) error {
	rows := Rows(idx)
	if rows == nil {
		rows = []*Row{}
	}
	return pfx.Err(gocsv.Marshal(&rows, w))
}
