package index

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRenames(t *testing.T) {
	idx := loadSample(t)

	if err := idx.RenameSeries("P1", "2020_1030", "3_T1w", "3_MPRAGE"); err != nil {
		t.Fatal(err)
	}
	if err := idx.RenameStudy("P1", "2020_1030", "2020_1030_Brain"); err != nil {
		t.Fatal(err)
	}
	if err := idx.RenameSubject("P1", "Anon01"); err != nil {
		t.Fatal(err)
	}

	want := []string{"a.dcm", "b.dcm"}
	if got := idx.ImagePathList("Anon01", "2020_1030_Brain", "3_MPRAGE"); !cmp.Equal(got, want) {
		t.Errorf("ImagePathList after renames = %v, want %v", got, want)
	}
	if _, ok := idx.Subject("P1"); ok {
		t.Error("old subject ID still resolves")
	}

	// Renaming to the current ID is a no-op.
	if err := idx.RenameSubject("Anon01", "Anon01"); err != nil {
		t.Errorf("RenameSubject to itself = %v", err)
	}
}

func TestRenameErrors(t *testing.T) {
	idx := loadSample(t)
	idx.reader = derivedReader()
	if _, err := idx.InsertImage(NewImage{Path: "y1", Source: "a.dcm"}); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.InsertImage(NewImage{Path: "c.dcm", SubjectID: "P2", StudyID: "S"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		rename  func() error
		wantErr error
	}{
		{"missing subject", func() error { return idx.RenameSubject("nobody", "x") }, ErrNotFound},
		{"subject clash", func() error { return idx.RenameSubject("P1", "P2") }, ErrDuplicateID},
		{"empty subject", func() error { return idx.RenameSubject("P1", "") }, ErrMissingID},
		{"missing study", func() error { return idx.RenameStudy("P1", "nope", "x") }, ErrNotFound},
		{"study under missing subject", func() error { return idx.RenameStudy("nobody", "2020_1030", "x") }, ErrNotFound},
		{"empty study", func() error { return idx.RenameStudy("P1", "2020_1030", "") }, ErrMissingID},
		{"series clash", func() error { return idx.RenameSeries("P1", "2020_1030", "3_T1w", "4_T2w") }, ErrDuplicateID},
		{"missing series", func() error { return idx.RenameSeries("P1", "2020_1030", "9_x", "x") }, ErrNotFound},
	}
	for _, tt := range tests {
		if err := tt.rename(); !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.wantErr)
		}
	}

	// Failed renames leave the tree as it was.
	if got := idx.SeriesIDs("P1", "2020_1030"); !cmp.Equal(got, []string{"3_T1w", "4_T2w"}) {
		t.Errorf("SeriesIDs = %v", got)
	}
}

func TestRenameSeriesFromDataset(t *testing.T) {
	idx := loadSample(t)

	newID, err := idx.RenameSeriesFromDataset("P1", "2020_1030", "3_T1w", "", "Structural")
	if err != nil {
		t.Fatal(err)
	}
	if newID != "3_Structural" {
		t.Errorf("new ID = %q, want 3_Structural", newID)
	}

	newID, err = idx.RenameSeriesFromDataset("P1", "2020_1030", "3_Structural", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if newID != "3_T1w" {
		t.Errorf("new ID = %q, want 3_T1w", newID)
	}

	if _, err := idx.RenameSeriesFromDataset("P1", "2020_1030", "missing", "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing series = %v", err)
	}
}
