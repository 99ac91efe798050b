package models

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Flag is a boolean stored as "True" or "False" in the index document.
type Flag bool

func (f Flag) String() string {
	if f {
		return "True"
	}
	return "False"
}

func (f Flag) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: f.String()}, nil
}

func (f *Flag) UnmarshalXMLAttr(attr xml.Attr) error {
	v, err := ParseFlag(attr.Value)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseFlag accepts true/false in any case, 1/0 and the empty string (false).
func ParseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, nil
	case "false", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid flag value %q", s)
}
