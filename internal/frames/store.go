// Package frames provides bounded, time-ordered storage of dog evidence
// frames on disk. The newest frames win: when the store is full the oldest
// frame is evicted to make room.
package frames

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	namePrefix = "dog_"
	nameExt    = ".jpg"
	nameLayout = "20060102_150405"

	// failLimit is the number of consecutive write failures after which
	// Insert reports the storage as failing rather than transiently broken.
	failLimit = 5
)

// ErrStorageFailing reports a persistent inability to write frames. Callers
// should treat it as fatal; a single failed write is returned as a plain
// error instead.
var ErrStorageFailing = errors.New("frame storage failing")

// Record identifies one stored frame.
type Record struct {
	// Name is the bare filename, e.g. "dog_20260314_092653.jpg".
	Name string
	// Path is the full on-disk path.
	Path string
	// Taken is the capture time encoded in the name, second resolution.
	Taken time.Time
}

// Store is a bounded frame store. The detection loop is the only writer;
// List and Count may be called concurrently from HTTP handlers.
type Store struct {
	dir      string
	capacity int

	mu sync.Mutex
	// records is ordered oldest first. Names order lexically the same way
	// they order chronologically.
	records       []Record
	writeFailures int
}

// Open prepares dir and rebuilds the index from frames already on disk so
// a restarted process resumes with its previous evidence. The capacity
// bound is applied immediately: a prior run interrupted mid-eviction may
// have left one frame too many.
func Open(dir string, capacity int) (*Store, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("frame capacity must be at least 1, got %d", capacity)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan frame dir: %w", err)
	}

	s := &Store{dir: dir, capacity: capacity}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		taken, err := ParseName(e.Name())
		if err != nil {
			// Leftover temp files or foreign content, not ours to manage.
			continue
		}
		s.records = append(s.records, Record{
			Name:  e.Name(),
			Path:  filepath.Join(dir, e.Name()),
			Taken: taken,
		})
	}
	sort.Slice(s.records, func(i, j int) bool { return s.records[i].Name < s.records[j].Name })

	for _, victim := range s.trimLocked() {
		if err := os.Remove(victim.Path); err != nil {
			log.Printf("frames: remove excess %s: %v", victim.Name, err)
		}
	}
	return s, nil
}

// Name returns the filename for a frame captured at ts, using ts's location.
func Name(ts time.Time) string {
	return namePrefix + ts.Format(nameLayout) + nameExt
}

// ParseName extracts the capture time from a frame filename. The name must
// match the dog_YYYYMMDD_HHMMSS.jpg convention exactly.
func ParseName(name string) (time.Time, error) {
	if !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, nameExt) {
		return time.Time{}, fmt.Errorf("not a frame name: %q", name)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), nameExt)
	taken, err := time.ParseInLocation(nameLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a frame name: %q", name)
	}
	return taken, nil
}

// Insert stores one JPEG captured at ts. The bytes land under a temporary
// name and are renamed into place, so readers never observe a partial
// frame. A second capture within the same second replaces the first.
// Transient write errors are plain errors; after failLimit consecutive
// failures the returned error wraps ErrStorageFailing.
func (s *Store) Insert(jpeg []byte, ts time.Time) (Record, error) {
	name := Name(ts)
	path := filepath.Join(s.dir, name)

	if err := writeAtomic(path, jpeg); err != nil {
		s.mu.Lock()
		s.writeFailures++
		failures := s.writeFailures
		s.mu.Unlock()
		if failures >= failLimit {
			return Record{}, fmt.Errorf("write frame %s after %d consecutive failures: %w (%v)",
				name, failures, ErrStorageFailing, err)
		}
		return Record{}, fmt.Errorf("write frame %s: %w", name, err)
	}

	rec := Record{Name: name, Path: path, Taken: ts.Truncate(time.Second)}

	s.mu.Lock()
	s.writeFailures = 0
	replaced := false
	for i := range s.records {
		if s.records[i].Name == name {
			s.records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		s.records = append(s.records, rec)
		// A clock step backwards can deliver an out-of-order name.
		if n := len(s.records); n > 1 && rec.Name < s.records[n-2].Name {
			sort.Slice(s.records, func(i, j int) bool { return s.records[i].Name < s.records[j].Name })
		}
	}
	victims := s.trimLocked()
	s.mu.Unlock()

	for _, victim := range victims {
		if err := os.Remove(victim.Path); err != nil {
			log.Printf("frames: evict %s: %v", victim.Name, err)
		}
	}
	return rec, nil
}

// List returns up to limit records, newest first. A limit <= 0 or larger
// than the store yields everything retained.
func (s *Store) List(limit int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Record, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.records[i])
	}
	return out
}

// Count returns the number of frames currently retained.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Dir returns the directory frames are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// trimLocked drops the oldest records beyond capacity from the index and
// returns them for deletion outside the lock. Callers hold s.mu.
func (s *Store) trimLocked() []Record {
	if len(s.records) <= s.capacity {
		return nil
	}
	excess := len(s.records) - s.capacity
	victims := make([]Record, excess)
	copy(victims, s.records[:excess])
	s.records = append(s.records[:0], s.records[excess:]...)
	return victims
}

// writeAtomic writes data to path via a temporary sibling and rename, so a
// crash mid-write never leaves a truncated frame under the final name.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
