package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/mkmik/argsort"

	"ikh/weasel-index/internal/api"
	"ikh/weasel-index/internal/config"
	"ikh/weasel-index/internal/dicomio"
	"ikh/weasel-index/internal/index"
	"ikh/weasel-index/internal/models"
)

// Watcher keeps an index in step with a folder of DICOM files. Files are
// read by a pool of workers; the index itself is only touched under Mutex.
type Watcher struct {
	Config       *config.Config
	Index        *index.Index
	Reader       dicomio.Reader
	LastEvent    time.Time
	Timeout      time.Duration
	PollInterval time.Duration
	BatchSize    int
	FileMetadata map[string]time.Time
	Mutex        sync.Mutex

	// images holds the node each watched file was registered as. Nodes are
	// found again with RefOf, so renames made meanwhile are followed.
	images    map[string]*models.Image
	saveTimer *time.Timer
}

// ScanResult counts what one pass over the folder changed.
type ScanResult struct {
	Added   int
	Updated int
	Removed int
	Failed  int
}

func (r ScanResult) Changed() bool {
	return r.Added > 0 || r.Updated > 0 || r.Removed > 0
}

type scanned struct {
	path    string
	modTime time.Time
	md      *dicomio.Metadata
	err     error
}

func NewWatcher(config *config.Config, idx *index.Index, reader dicomio.Reader) (*Watcher, error) {
	w := &Watcher{
		Config:       config,
		Index:        idx,
		Reader:       reader,
		LastEvent:    time.Now(),
		Timeout:      config.TimeoutDuration(),
		PollInterval: config.PollDuration(),
		BatchSize:    config.BatchSize,
		FileMetadata: make(map[string]time.Time),
		images:       make(map[string]*models.Image),
	}

	// Files already in a loaded index are known; their modification time is
	// picked up on the first pass without re-inserting them. A name listed
	// more than once is tracked by its first node.
	for _, image := range knownImages(idx) {
		if _, seen := w.images[image.Name]; seen {
			continue
		}
		w.images[image.Name] = image
		w.FileMetadata[image.Name] = time.Time{}
	}
	return w, nil
}

func knownImages(idx *index.Index) []*models.Image {
	var images []*models.Image
	for _, subject := range idx.Root().Subjects {
		for _, study := range subject.Studies {
			for _, series := range study.Series {
				images = append(images, series.Images...)
			}
		}
	}
	return images
}

// Start polls the folder until ctx is cancelled. The returned channel is
// closed once polling has stopped and no scan is running.
func (w *Watcher) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(w.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.CheckDirectory()
			}
		}
	}()
	return done
}

// CheckDirectory runs one scan and, when it changed the index, schedules a
// save once the folder has been quiet for Timeout.
func (w *Watcher) CheckDirectory() {
	log.Printf("Checking directory...")

	result := w.Scan()
	if !result.Changed() {
		return
	}
	log.Printf("Indexed %d new, %d updated and %d removed files (%d failed)", result.Added, result.Updated, result.Removed, result.Failed)

	w.Mutex.Lock()
	defer w.Mutex.Unlock()
	if w.saveTimer == nil {
		w.saveTimer = time.AfterFunc(w.Timeout, func() {
			if err := w.Flush(); err != nil {
				log.Println("error:", err)
			}
		})
	} else {
		w.saveTimer.Reset(w.Timeout)
	}
}

// Scan walks the folder once, reads new or modified files with a pool of
// workers and applies the results to the index.
func (w *Watcher) Scan() ScanResult {
	paths, adopted := w.changedFiles()

	fileChan := make(chan string, w.BatchSize)
	resultChan := make(chan scanned, w.BatchSize)

	go func() {
		for path := range paths {
			fileChan <- path
		}
		close(fileChan)
	}()

	var wg sync.WaitGroup
	numWorkers := runtime.NumCPU() * 2
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for filePath := range fileChan {
				md, err := w.Reader.ReadMetadata(filePath)
				resultChan <- scanned{path: filePath, modTime: paths[filePath], md: md, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var results []scanned
	for r := range resultChan {
		results = append(results, r)
	}

	return w.apply(results, adopted)
}

// changedFiles lists DICOM files whose modification time differs from the
// one last recorded. Files listed by a loaded index but not yet seen on disk
// are returned separately; they need no reading. The metadata cache is
// skipped when it lives inside the folder.
func (w *Watcher) changedFiles() (changed, adopted map[string]time.Time) {
	w.Mutex.Lock()
	known := make(map[string]time.Time, len(w.FileMetadata))
	for path, modTime := range w.FileMetadata {
		known[path] = modTime
	}
	w.Mutex.Unlock()

	changed = make(map[string]time.Time)
	adopted = make(map[string]time.Time)
	err := filepath.Walk(w.Config.DicomFolder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Println("error:", err)
			return nil
		}
		if info.IsDir() {
			if w.Config.CachePath != "" && filepath.Clean(path) == filepath.Clean(w.Config.CachePath) {
				return filepath.SkipDir
			}
			return nil
		}
		if !dicomio.IsDicomPath(path) {
			return nil
		}
		lastModified, ok := known[path]
		switch {
		case ok && lastModified.IsZero():
			adopted[path] = info.ModTime()
		case !ok || !lastModified.Equal(info.ModTime()):
			changed[path] = info.ModTime()
		}
		return nil
	})
	if err != nil {
		log.Println("error:", err)
	}
	return changed, adopted
}

// apply is the only place the watcher mutates the index.
func (w *Watcher) apply(results []scanned, adopted map[string]time.Time) ScanResult {
	w.Mutex.Lock()
	defer w.Mutex.Unlock()

	for path, modTime := range adopted {
		w.FileMetadata[path] = modTime
	}

	var result ScanResult
	var ok []scanned
	for _, r := range results {
		if r.err != nil {
			log.Println("error:", r.err)
			result.Failed++
			continue
		}
		ok = append(ok, r)
	}

	for _, i := range insertionOrder(ok) {
		r := ok[i]
		ref, updated, err := w.place(r)
		if err != nil {
			log.Println("error:", err)
			result.Failed++
			continue
		}
		if image, found := w.Index.Image(ref.Subject, ref.Study, ref.Series, ref.Image); found {
			w.images[r.path] = image
		}
		w.FileMetadata[r.path] = r.modTime
		if updated {
			result.Updated++
		} else {
			result.Added++
		}
	}

	for path := range w.FileMetadata {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		delete(w.FileMetadata, path)
		ref, found := w.Index.RefOf(w.images[path])
		delete(w.images, path)
		if !found {
			// Already taken out of the index by hand.
			continue
		}
		if err := w.Index.RemoveImage(ref.Subject, ref.Study, ref.Series, ref.Image); err != nil {
			log.Println("error:", err)
			continue
		}
		result.Removed++
	}

	if result.Changed() {
		w.LastEvent = time.Now()
	}
	return result
}

// place refreshes the node already registered for a file, or inserts the
// file when it has none. It reports whether an existing node was updated.
func (w *Watcher) place(r scanned) (index.Ref, bool, error) {
	if ref, found := w.Index.RefOf(w.images[r.path]); found {
		ref, err := w.Index.UpdateImage(ref, r.md)
		return ref, true, err
	}
	ref, err := w.Index.PlaceImage(index.NewImage{Path: r.path, Metadata: r.md})
	return ref, false, err
}

// Flush saves the index to the configured path and notifies the API.
func (w *Watcher) Flush() error {
	w.Mutex.Lock()
	defer w.Mutex.Unlock()

	if err := w.Index.Save(w.Config.IndexPath); err != nil {
		return err
	}
	log.Println("index saved:", w.Config.IndexPath)

	return api.NotifyIndexSaved(w.Config.ApiUrl, w.Config.IndexPath, w.Index.CountItems())
}

// byAcquisition orders scanned files so that images of one series are
// inserted together and by instance number.
type byAcquisition []scanned

func (s byAcquisition) Len() int      { return len(s) }
func (s byAcquisition) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s byAcquisition) Less(i, j int) bool {
	a, b := s[i], s[j]
	if da, db := filepath.Dir(a.path), filepath.Dir(b.path); da != db {
		return da < db
	}
	if a.md.SeriesInstanceUID != b.md.SeriesInstanceUID {
		return a.md.SeriesInstanceUID < b.md.SeriesInstanceUID
	}
	na, errA := strconv.Atoi(a.md.InstanceNumber)
	nb, errB := strconv.Atoi(b.md.InstanceNumber)
	switch {
	case errA == nil && errB == nil && na != nb:
		return na < nb
	case (errA == nil) != (errB == nil):
		// Numbered instances go before unnumbered ones.
		return errA == nil
	}
	return a.path < b.path
}

// insertionOrder returns the indices of files in the order they should be
// added to the index, leaving files itself untouched.
func insertionOrder(files []scanned) []int {
	return argsort.Sort(byAcquisition(files))
}
