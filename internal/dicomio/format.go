package dicomio

import (
	"path/filepath"
	"strings"

	"github.com/araddon/dateparse"
)

const (
	// DateLayout and TimeLayout are the formats stored in the index document.
	DateLayout = "02/01/2006"
	TimeLayout = "15:04:05"

	labelWidth = 6
)

// FormatDate converts a DICOM DA value (YYYYMMDD) to DD/MM/YYYY. Values that
// cannot be parsed are returned unchanged.
func FormatDate(da string) string {
	da = strings.TrimSpace(da)
	if da == "" {
		return ""
	}
	t, err := dateparse.ParseAny(da)
	if err != nil {
		return da
	}
	return t.Format(DateLayout)
}

// FormatTime converts a DICOM TM value (HHMMSS.FFFFFF, possibly truncated) to
// HH:MM:SS. Values that are not digits are returned unchanged.
func FormatTime(tm string) string {
	tm = strings.TrimSpace(tm)
	if tm == "" {
		return ""
	}
	digits := strings.ReplaceAll(strings.SplitN(tm, ".", 2)[0], ":", "")
	if len(digits) > 6 || !isDigits(digits) {
		return tm
	}
	digits += strings.Repeat("0", 6-len(digits))
	return digits[0:2] + ":" + digits[2:4] + ":" + digits[4:6]
}

// PadLabel left-pads an instance number with zeros to six characters.
func PadLabel(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= labelWidth {
		return s
	}
	return strings.Repeat("0", labelWidth-len(s)) + s
}

// IsDicomPath reports whether the file name looks like a DICOM instance.
// Many scanners write instances without any extension or name them by UID.
func IsDicomPath(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(name, ".") || name == "dicomdir" {
		return false
	}
	ext := filepath.Ext(name)
	switch ext {
	case ".dcm", ".ima", "":
		return true
	}
	// UID-style names such as 1.2.840.113619.2.1
	return isDigits(strings.TrimPrefix(ext, "."))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
