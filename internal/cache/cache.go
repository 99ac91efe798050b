package cache

import (
	"encoding/json"
	"os"

	"github.com/carbocation/pfx"
	"github.com/syndtr/goleveldb/leveldb"

	"ikh/weasel-index/internal/dicomio"
)

const keyPrefix = "meta:"

// MetadataCache remembers the metadata of files it has read, keyed by path,
// and serves it again while the file's modification time is unchanged.
type MetadataCache struct {
	db   *leveldb.DB
	next dicomio.Reader
}

type entry struct {
	ModTime  int64             `json:"mod_time"`
	Metadata *dicomio.Metadata `json:"metadata"`
}

// Open opens (or creates) the LevelDB store at path in front of next.
func Open(path string, next dicomio.Reader) (*MetadataCache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, pfx.Err(err)
	}
	return &MetadataCache{db: db, next: next}, nil
}

func (c *MetadataCache) Close() error {
	return c.db.Close()
}

func (c *MetadataCache) ReadMetadata(path string) (*dicomio.Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	modTime := info.ModTime().UnixNano()

	if md, ok := c.get(path, modTime); ok {
		return md, nil
	}

	md, err := c.next.ReadMetadata(path)
	if err != nil {
		return nil, err
	}
	if err := c.put(path, entry{ModTime: modTime, Metadata: md}); err != nil {
		return nil, err
	}
	return md, nil
}

// Forget drops the cached entry for path.
func (c *MetadataCache) Forget(path string) error {
	return pfx.Err(c.db.Delete([]byte(keyPrefix+path), nil))
}

func (c *MetadataCache) get(path string, modTime int64) (*dicomio.Metadata, bool) {
	raw, err := c.db.Get([]byte(keyPrefix+path), nil)
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil || e.Metadata == nil {
		return nil, false
	}
	if e.ModTime != modTime {
		return nil, false
	}
	return e.Metadata, true
}

func (c *MetadataCache) put(path string, e entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return pfx.Err(err)
	}
	return pfx.Err(c.db.Put([]byte(keyPrefix+path), raw, nil))
}
