package export

import (
	"bytes"
	"strings"
	"testing"

	"ikh/weasel-index/internal/dicomio"
	"ikh/weasel-index/internal/index"
)

func TestWriteCSV(t *testing.T) {
	reader := dicomio.MapReader{
		"a.dcm": {PatientID: "P1", SeriesInstanceUID: "1.2.3.4", SeriesNumber: "3", SeriesDescription: "T1w", InstanceNumber: "1", AcquisitionDate: "20201030", AcquisitionTime: "101500"},
		"b.dcm": {PatientID: "P1", SeriesInstanceUID: "1.2.3.4", SeriesNumber: "3", SeriesDescription: "T1w", InstanceNumber: "2", AcquisitionDate: "20201030", AcquisitionTime: "101501"},
	}
	idx := index.New(reader)
	for _, name := range []string{"a.dcm", "b.dcm"} {
		if _, err := idx.InsertImage(index.NewImage{Path: name, StudyID: "2020_1030"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.SetChecked(index.Ref{Subject: "P1", Study: "2020_1030", Series: "3_T1w", Image: "b.dcm"}, true); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(idx, &buf); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"subject,study,series,series_uid,label,name,date,time,checked",
		"P1,2020_1030,3_T1w,1.2.3.4,000001,a.dcm,30/10/2020,10:15:00,False",
		"P1,2020_1030,3_T1w,1.2.3.4,000002,b.dcm,30/10/2020,10:15:01,True",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for i := range want {
		if strings.TrimRight(lines[i], "\r") != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestWriteCSVEmptyIndex(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(index.New(nil), &buf); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "subject,study,series,series_uid,label,name,date,time,checked" {
		t.Errorf("output = %q", got)
	}
}
