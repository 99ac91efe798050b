package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ikh/weasel-index/internal/cache"
	"ikh/weasel-index/internal/config"
	"ikh/weasel-index/internal/dicomio"
	"ikh/weasel-index/internal/export"
	"ikh/weasel-index/internal/index"
	"ikh/weasel-index/internal/watcher"
)

func main() {
	configPath := flag.String("config", "/app/config.yaml", "path to the YAML configuration")
	once := flag.Bool("once", false, "scan the folder once, save the index and exit")
	csvPath := flag.String("csv", "", "with -once, also write the image listing as CSV to this path")
	flag.Parse()

	if err := run(*configPath, *once, *csvPath); err != nil {
		log.Fatal(err)
	}
}

// run returns instead of exiting so that the metadata cache is always closed.
func run(configPath string, once bool, csvPath string) error {
	// Read the configuration file
	log.Print("Reading config...")
	config, err := config.ReadConfig(configPath)
	if err != nil {
		return err
	}

	var reader dicomio.Reader = dicomio.FileReader{}
	if config.CachePath != "" {
		metadataCache, err := cache.Open(config.CachePath, reader)
		if err != nil {
			return err
		}
		defer metadataCache.Close()
		reader = metadataCache
	}

	log.Print("Loading index...")
	idx, err := loadIndex(config.IndexPath, reader)
	if err != nil {
		return err
	}
	counts := idx.CountItems()
	log.Printf("Index holds %d subjects, %d studies, %d series, %d images",
		counts.Subjects, counts.Studies, counts.Series, counts.Images)

	// Initialize the watcher
	log.Print("Initializing the watcher...")
	watcher, err := watcher.NewWatcher(config, idx, reader)
	if err != nil {
		return err
	}

	if once {
		result := watcher.Scan()
		log.Printf("Indexed %d new, %d updated and %d removed files (%d failed)",
			result.Added, result.Updated, result.Removed, result.Failed)
		if err := watcher.Flush(); err != nil {
			return err
		}
		if csvPath != "" {
			return writeCSV(idx, csvPath)
		}
		return nil
	}

	// Start the watcher
	log.Print("Starting the watcher...")
	ctx, cancel := context.WithCancel(context.Background())
	done := watcher.Start(ctx)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	cancel()
	<-done

	log.Print("Saving index before exit...")
	return watcher.Flush()
}

// loadIndex parses the index at path, or starts an empty one when the file
// does not exist yet.
func loadIndex(path string, reader dicomio.Reader) (*index.Index, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		log.Printf("No index at %s, starting empty", path)
		return index.New(reader), nil
	}
	return index.Parse(path, reader)
}

func writeCSV(idx *index.Index, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(idx, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
