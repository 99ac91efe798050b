package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ikh/weasel-index/internal/config"
	"ikh/weasel-index/internal/dicomio"
	"ikh/weasel-index/internal/index"
)

type fixture struct {
	dir    string
	config *config.Config
	reader dicomio.MapReader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		dir: filepath.Join(root, "dicom"),
		config: &config.Config{
			DicomFolder:  filepath.Join(root, "dicom"),
			IndexPath:    filepath.Join(root, "index.xml"),
			Timeout:      1,
			PollInterval: 1,
			BatchSize:    4,
		},
		reader: dicomio.MapReader{},
	}
	if err := os.MkdirAll(filepath.Join(f.dir, "P1"), 0o755); err != nil {
		t.Fatal(err)
	}
	return f
}

// addFile writes a DICOM placeholder and registers its metadata.
func (f *fixture) addFile(t *testing.T, name, instance string) string {
	t.Helper()
	path := filepath.Join(f.dir, "P1", name)
	if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
		t.Fatal(err)
	}
	f.reader[path] = &dicomio.Metadata{
		PatientID:         "P1",
		StudyDate:         "20201030",
		StudyTime:         "101500",
		StudyDescription:  "Brain",
		SeriesInstanceUID: "1.2.3.4",
		SeriesNumber:      "3",
		SeriesDescription: "T1w",
		InstanceNumber:    instance,
	}
	return path
}

const (
	studyID  = "20201030_101500_Brain"
	seriesID = "3_T1w"
)

func TestScan(t *testing.T) {
	f := newFixture(t)
	a := f.addFile(t, "a.dcm", "2")
	b := f.addFile(t, "b.dcm", "1")
	if err := os.WriteFile(filepath.Join(f.dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}

	idx := index.New(f.reader)
	w, err := NewWatcher(f.config, idx, f.reader)
	if err != nil {
		t.Fatal(err)
	}

	result := w.Scan()
	if result != (ScanResult{Added: 2}) {
		t.Errorf("first scan = %+v", result)
	}
	// Instance 1 is inserted first.
	if got := idx.ImagePathList("P1", studyID, seriesID); !cmp.Equal(got, []string{b, a}) {
		t.Errorf("ImagePathList = %v", got)
	}

	if result := w.Scan(); result.Changed() {
		t.Errorf("unchanged folder rescanned as %+v", result)
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(a, later, later); err != nil {
		t.Fatal(err)
	}
	if result := w.Scan(); result != (ScanResult{Updated: 1}) {
		t.Errorf("scan after touching a file = %+v", result)
	}
	if got := idx.CountItems().Images; got != 2 {
		t.Errorf("%d images after re-reading a file, want 2", got)
	}

	if err := os.Remove(b); err != nil {
		t.Fatal(err)
	}
	if result := w.Scan(); result != (ScanResult{Removed: 1}) {
		t.Errorf("scan after removing a file = %+v", result)
	}
	if got := idx.ImagePathList("P1", studyID, seriesID); !cmp.Equal(got, []string{a}) {
		t.Errorf("ImagePathList = %v", got)
	}
}

func TestScanCountsUnreadableFiles(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "a.dcm", "1")
	broken := filepath.Join(f.dir, "P1", "broken.dcm")
	if err := os.WriteFile(broken, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	idx := index.New(f.reader)
	w, err := NewWatcher(f.config, idx, f.reader)
	if err != nil {
		t.Fatal(err)
	}
	if result := w.Scan(); result != (ScanResult{Added: 1, Failed: 1}) {
		t.Errorf("scan = %+v", result)
	}
}

func TestScanAdoptsLoadedIndex(t *testing.T) {
	f := newFixture(t)
	a := f.addFile(t, "a.dcm", "1")

	idx := index.New(f.reader)
	if _, err := idx.InsertImage(index.NewImage{Path: a}); err != nil {
		t.Fatal(err)
	}
	if err := idx.SetChecked(index.Ref{Subject: "P1", Study: studyID, Series: seriesID, Image: a}, true); err != nil {
		t.Fatal(err)
	}

	// The reader no longer knows the file; adopting it must not read it.
	w, err := NewWatcher(f.config, idx, dicomio.MapReader{})
	if err != nil {
		t.Fatal(err)
	}
	if result := w.Scan(); result != (ScanResult{}) {
		t.Errorf("scan = %+v", result)
	}
	if w.FileMetadata[a].IsZero() {
		t.Error("modification time of an adopted file not recorded")
	}
	if got := len(idx.CheckedLists().Images); got != 1 {
		t.Errorf("adopting a file reset its checked state")
	}
}

func TestFlush(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "a.dcm", "1")

	idx := index.New(f.reader)
	w, err := NewWatcher(f.config, idx, f.reader)
	if err != nil {
		t.Fatal(err)
	}
	w.Scan()
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	saved, err := index.Parse(f.config.IndexPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := saved.CountItems(); got != idx.CountItems() {
		t.Errorf("saved counts = %+v, want %+v", got, idx.CountItems())
	}
}

func TestInsertionOrder(t *testing.T) {
	md := func(uid, instance string) *dicomio.Metadata {
		return &dicomio.Metadata{SeriesInstanceUID: uid, InstanceNumber: instance}
	}
	files := []scanned{
		{path: "/d/P2/x", md: md("1", "1")},
		{path: "/d/P1/c", md: md("2", "1")},
		{path: "/d/P1/b", md: md("1", "10")},
		{path: "/d/P1/a", md: md("1", "9")},
		{path: "/d/P1/z", md: md("1", "")},
		{path: "/d/P1/y", md: md("1", "")},
	}

	var got []string
	for _, i := range insertionOrder(files) {
		got = append(got, files[i].path)
	}
	want := []string{"/d/P1/a", "/d/P1/b", "/d/P1/y", "/d/P1/z", "/d/P1/c", "/d/P2/x"}
	if !cmp.Equal(got, want) {
		t.Errorf("insertionOrder = %v, want %v", got, want)
	}
}

func touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	when := time.Now().Add(offset)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatal(err)
	}
}

func TestScanKeepsEditsOfModifiedFiles(t *testing.T) {
	f := newFixture(t)
	a := f.addFile(t, "a.dcm", "1")

	idx := index.New(f.reader)
	w, err := NewWatcher(f.config, idx, f.reader)
	if err != nil {
		t.Fatal(err)
	}
	w.Scan()

	if err := idx.RenameSeries("P1", studyID, seriesID, "3_T1 renamed"); err != nil {
		t.Fatal(err)
	}
	if err := idx.SetChecked(index.Ref{Subject: "P1", Study: studyID}, true); err != nil {
		t.Fatal(err)
	}
	if err := idx.SetExpanded(index.Ref{Subject: "P1", Study: studyID, Series: "3_T1 renamed"}, true); err != nil {
		t.Fatal(err)
	}

	f.reader[a].InstanceNumber = "7"
	touch(t, a, time.Hour)
	if result := w.Scan(); result != (ScanResult{Updated: 1}) {
		t.Errorf("scan = %+v", result)
	}

	if got := idx.SeriesIDs("P1", studyID); !cmp.Equal(got, []string{"3_T1 renamed"}) {
		t.Errorf("SeriesIDs = %v, want the renamed series only", got)
	}
	if got := idx.CheckedLists().Studies; len(got) != 1 {
		t.Errorf("checked studies = %v", got)
	}
	series, _ := idx.Series("P1", studyID, "3_T1 renamed")
	if !series.Expanded {
		t.Error("series collapsed by a rescan")
	}
	image, _ := idx.Image("P1", studyID, "3_T1 renamed", a)
	if image.Label != "000007" {
		t.Errorf("label = %q, want 000007", image.Label)
	}

	// Removal follows the rename too.
	if err := os.Remove(a); err != nil {
		t.Fatal(err)
	}
	if result := w.Scan(); result != (ScanResult{Removed: 1}) {
		t.Errorf("scan after removal = %+v", result)
	}
	if got := idx.CountItems().Total; got != 0 {
		t.Errorf("%d nodes left", got)
	}
}

func TestScanMovesFileToNewSeries(t *testing.T) {
	f := newFixture(t)
	a := f.addFile(t, "a.dcm", "1")
	f.addFile(t, "b.dcm", "2")

	idx := index.New(f.reader)
	w, err := NewWatcher(f.config, idx, f.reader)
	if err != nil {
		t.Fatal(err)
	}
	w.Scan()

	f.reader[a].SeriesInstanceUID = "1.2.3.5"
	f.reader[a].SeriesNumber = "4"
	f.reader[a].SeriesDescription = "T2w"
	touch(t, a, time.Hour)
	if result := w.Scan(); result != (ScanResult{Updated: 1}) {
		t.Errorf("scan = %+v", result)
	}
	if got := idx.SeriesIDs("P1", studyID); !cmp.Equal(got, []string{seriesID, "4_T2w"}) {
		t.Errorf("SeriesIDs = %v", got)
	}
	if _, _, series, _ := idx.ImageParentIDs(a); series != "4_T2w" {
		t.Errorf("a.dcm is in %q", series)
	}
}

func TestScanSkipsCacheFolder(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "a.dcm", "1")
	f.config.CachePath = filepath.Join(f.dir, "cache")
	if err := os.MkdirAll(f.config.CachePath, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"CURRENT", "LOCK", "LOG"} {
		if err := os.WriteFile(filepath.Join(f.config.CachePath, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewWatcher(f.config, index.New(f.reader), f.reader)
	if err != nil {
		t.Fatal(err)
	}
	if result := w.Scan(); result != (ScanResult{Added: 1}) {
		t.Errorf("scan = %+v", result)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	w, err := NewWatcher(f.config, index.New(f.reader), f.reader)
	if err != nil {
		t.Fatal(err)
	}
	w.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := w.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
