package index

import (
	"encoding/xml"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
	"golang.org/x/net/html/charset"

	"ikh/weasel-index/internal/models"
)

// Reload replaces the tree with the document at path. On failure the
// previous tree is left in place but ParsedOK reports false; nothing from the
// failed document is kept.
func (idx *Index) Reload(path string) error {
	root, t, err := decodeFile(path)
	if err != nil {
		idx.parsedOK = false
		log.Println("error:", err)
		return err
	}

	idx.root = root
	idx.tables = t
	idx.path = path
	idx.parsedOK = true

	log.Printf("Parsed index %s", path)
	return nil
}

func decodeFile(path string) (*models.Root, tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tables{}, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	decoder := xml.NewDecoder(f)
	decoder.CharsetReader = charset.NewReaderLabel

	root := &models.Root{}
	if err := decoder.Decode(root); err != nil {
		return nil, tables{}, &ParseError{Path: path, Err: err}
	}

	t, err := buildTables(root)
	if err != nil {
		return nil, tables{}, &ParseError{Path: path, Err: err}
	}
	return root, t, nil
}

// buildTables indexes a decoded tree, rejecting nodes without an ID and
// siblings that share one.
func buildTables(root *models.Root) (tables, error) {
	t := newTables()
	for _, subject := range root.Subjects {
		ref := Ref{Subject: subject.ID}
		if subject.ID == "" {
			return t, fmt.Errorf("%w: subject", ErrMissingID)
		}
		if _, ok := t.subjects[subject.ID]; ok {
			return t, duplicate(ref)
		}
		t.subjects[subject.ID] = subject
		t.studies[subject] = make(map[string]*models.Study, len(subject.Studies))

		for _, study := range subject.Studies {
			ref := Ref{Subject: subject.ID, Study: study.ID}
			if study.ID == "" {
				return t, fmt.Errorf("%w: study in %s", ErrMissingID, ref)
			}
			if _, ok := t.studies[subject][study.ID]; ok {
				return t, duplicate(ref)
			}
			t.studies[subject][study.ID] = study
			t.series[study] = make(map[string]*models.Series, len(study.Series))

			for _, series := range study.Series {
				ref := Ref{Subject: subject.ID, Study: study.ID, Series: series.ID}
				if series.ID == "" {
					return t, fmt.Errorf("%w: series in %s", ErrMissingID, ref)
				}
				if _, ok := t.series[study][series.ID]; ok {
					return t, duplicate(ref)
				}
				t.series[study][series.ID] = series
				t.images[series] = make(map[string]*models.Image, len(series.Images))

				for _, image := range series.Images {
					if image.Name == "" {
						return t, fmt.Errorf("%w: image in %s", ErrMissingID, ref)
					}
					if _, ok := t.images[series][image.Name]; ok {
						ref.Image = image.Name
						return t, duplicate(ref)
					}
					t.images[series][image.Name] = image
				}
			}
		}
	}
	return t, nil
}

// Save writes the tree to path, or to the document it was loaded from when
// path is empty. The document is written to a temporary file first so a
// failed save leaves the existing file untouched.
func (idx *Index) Save(path string) error {
	if path == "" {
		path = idx.path
	}
	if path == "" {
		return ErrNoPath
	}
	if idx.root.XMLName.Local == "" {
		idx.root.XMLName = xml.Name{Local: models.DefaultRootName}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return pfx.Err(err)
	}
	defer os.Remove(tmp.Name())

	if err := writeDocument(tmp, idx.root); err != nil {
		tmp.Close()
		return pfx.Err(err)
	}
	if err := tmp.Close(); err != nil {
		return pfx.Err(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return pfx.Err(err)
	}

	if idx.path == "" {
		idx.path = path
	}
	log.Printf("Saved index %s", path)
	return nil
}

func writeDocument(f *os.File, root *models.Root) error {
	if _, err := f.WriteString(xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(f)
	encoder.Indent("", "  ")
	if err := encoder.Encode(root); err != nil {
		return err
	}
	if _, err := f.WriteString("\n"); err != nil {
		return err
	}
	return nil
}
