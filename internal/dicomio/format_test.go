package dicomio

import "testing"

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"20201030", "30/10/2020"},
		{"  20200105 ", "05/01/2020"},
		{"", ""},
		{"not a date", "not a date"},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.in); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"101500", "10:15:00"},
		{"101500.123456", "10:15:00"},
		{"1015", "10:15:00"},
		{"10:15:30", "10:15:30"},
		{"", ""},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		if got := FormatTime(tt.in); got != tt.want {
			t.Errorf("FormatTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPadLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1", "000001"},
		{"42", "000042"},
		{"123456", "123456"},
		{"1234567", "1234567"},
		{"", "000000"},
	}
	for _, tt := range tests {
		if got := PadLabel(tt.in); got != tt.want {
			t.Errorf("PadLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsDicomPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/data/P1/a.dcm", true},
		{"/data/P1/A.DCM", true},
		{"/data/P1/scan.IMA", true},
		{"/data/P1/IM0001", true},
		{"/data/P1/1.2.840.113619.2.1", true},
		{"/data/P1/DICOMDIR", false},
		{"/data/P1/.DS_Store", false},
		{"/data/P1/notes.txt", false},
		{"/data/P1/index.xml", false},
	}
	for _, tt := range tests {
		if got := IsDicomPath(tt.path); got != tt.want {
			t.Errorf("IsDicomPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
