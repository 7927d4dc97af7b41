package fetcher

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tanq16/rangefetch/internal/utils"
)

// Manifest identifies the transfer a bitmap belongs to.
type Manifest struct {
	URL       string    `yaml:"url"`
	Size      int64     `yaml:"size"`
	ChunkSize int64     `yaml:"chunk_size"`
	Session   string    `yaml:"session"`
	Created   time.Time `yaml:"created"`
}

// CompletionStore is the per-range completion bitmap of one destination
// plus its sidecar files. The bitmap is persisted as raw bytes, one per
// range index (1 complete, 0 not), in <dest>.meta. All access is guarded by
// one mutex, which also serialises saves.
type CompletionStore struct {
	mu           sync.Mutex
	flags        []byte
	metaPath     string
	manifestPath string
	manifest     Manifest
	resumed      bool
}

// OpenCompletionStore loads the sidecar for outputPath, or starts with an
// all-incomplete bitmap when there is none or when the stored manifest
// describes a different object layout.
func OpenCompletionStore(outputPath, url string, totalSize, chunkSize int64) (*CompletionStore, error) {
	log := utils.GetLogger("completion")
	s := &CompletionStore{
		flags:        make([]byte, NumRanges(totalSize, chunkSize)),
		metaPath:     utils.MetaPath(outputPath),
		manifestPath: utils.ManifestPath(outputPath),
		manifest: Manifest{
			URL:       url,
			Size:      totalSize,
			ChunkSize: chunkSize,
			Session:   uuid.NewString(),
			Created:   time.Now().UTC(),
		},
	}

	stored, err := readManifest(s.manifestPath)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		if stored.Size != totalSize || stored.ChunkSize != chunkSize {
			log.Warn().Int64("storedSize", stored.Size).Int64("size", totalSize).
				Int64("storedChunkSize", stored.ChunkSize).Int64("chunkSize", chunkSize).
				Msg("Saved progress belongs to a different object, starting fresh")
			// Overwrite the stale bitmap before the new manifest vouches for it.
			if err := s.save(); err != nil {
				return nil, err
			}
			return s, s.writeManifest()
		}
		if stored.URL != url {
			log.Info().Str("storedURL", stored.URL).Msg("Source URL changed since last run, size matches so resuming")
		}
		s.manifest.Session = stored.Session
		s.manifest.Created = stored.Created
	}

	data, err := os.ReadFile(s.metaPath)
	if os.IsNotExist(err) {
		log.Info().Str("file", s.metaPath).Msg("No existing .meta file found. Starting fresh.")
		return s, s.writeManifest()
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %v", s.metaPath, err)
	}
	// Older sidecars were a fixed-size array; only the leading slots matter.
	copy(s.flags, data)
	for i, b := range s.flags {
		if b != 1 {
			s.flags[i] = 0
		}
	}
	s.resumed = true
	log.Info().Str("file", s.metaPath).Int("complete", s.count()).Int("ranges", len(s.flags)).Msg("Resuming from saved progress.")
	return s, s.writeManifest()
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %v", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		log := utils.GetLogger("completion")
		log.Warn().Err(err).Str("file", path).Msg("Ignoring unreadable manifest")
		return nil, nil
	}
	return &m, nil
}

func (s *CompletionStore) writeManifest() error {
	data, err := yaml.Marshal(s.manifest)
	if err != nil {
		return err
	}
	return writeFileSync(s.manifestPath, data)
}

// writeFileSync replaces path with data and fsyncs before returning, so a
// crash leaves either the old or the new content.
func writeFileSync(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *CompletionStore) IsComplete(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return index >= 0 && index < len(s.flags) && s.flags[index] == 1
}

// MarkComplete flags index and persists the whole bitmap.
func (s *CompletionStore) MarkComplete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.flags) {
		return fmt.Errorf("range index %d out of bounds (%d ranges)", index, len(s.flags))
	}
	s.flags[index] = 1
	return s.save()
}

func (s *CompletionStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

func (s *CompletionStore) save() error {
	if err := writeFileSync(s.metaPath, s.flags); err != nil {
		return fmt.Errorf("error saving progress: %v", err)
	}
	return nil
}

// Reset clears every flag in memory. The next save persists it.
func (s *CompletionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.flags)
	s.resumed = false
}

// Count returns the number of complete ranges.
func (s *CompletionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count()
}

func (s *CompletionStore) count() int {
	n := 0
	for _, b := range s.flags {
		if b == 1 {
			n++
		}
	}
	return n
}

func (s *CompletionStore) Len() int {
	return len(s.flags)
}

// Snapshot returns a copy of the bitmap.
func (s *CompletionStore) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.flags...)
}

func (s *CompletionStore) Resumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumed
}

func (s *CompletionStore) Session() string {
	return s.manifest.Session
}

// Remove deletes both sidecar files.
func (s *CompletionStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, path := range []string{s.metaPath, s.manifestPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
