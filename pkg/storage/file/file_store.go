// Package file provides the durable attribute container store. Containers
// live in memory while the store is open and are flushed on Close into one
// LZ4-framed CBOR segment per kind, alongside a metadata file carrying
// per-segment BLAKE3 checksums that Open verifies before trusting a segment.
package file

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/storage"
)

// FormatVersion is the current on-disk format version.
const FormatVersion = 1

// ErrChecksumMismatch is returned by Open when a segment's contents do not
// match the checksum recorded in the store metadata.
var ErrChecksumMismatch = errors.New("file: segment checksum mismatch")

// ErrFormatVersion is returned by Open when the metadata declares a format
// this build does not understand.
var ErrFormatVersion = errors.New("file: unsupported format version")

// ErrNoStore is returned by OpenExisting when the directory holds no store.
var ErrNoStore = errors.New("file: no store in directory")

const (
	metadataFilename = "store.json"
	segmentSuffix    = ".cbor.lz4"

	dirPerm  = 0o750
	filePerm = 0o600
)

// metadata is the store.json payload.
type metadata struct {
	FormatVersion int           `json:"format_version"`
	WrittenAt     time.Time     `json:"written_at"`
	Segments      []segmentInfo `json:"segments"`
}

// segmentInfo describes one per-kind segment file.
type segmentInfo struct {
	Kind     string `json:"kind"`
	Count    int    `json:"count"`
	Checksum string `json:"checksum"`
}

// Store is the durable store over one directory. While open it behaves like
// the in-memory store; durability happens on Close, which stages every
// segment to a temporary file and renames it into place, so a crash mid-
// flush leaves the previous on-disk state intact.
type Store struct {
	dir string

	mu   sync.Mutex
	open bool
	held map[containers.Kind][]containers.Container
}

// NewStore returns a closed store over the given directory. The directory
// is only created once the store is flushed; opening a missing directory
// starts an empty store without touching the filesystem.
func NewStore(dir string) *Store {
	return &Store{
		dir:  dir,
		held: make(map[containers.Kind][]containers.Container),
	}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Open implements storage.Store. An existing store directory is loaded and
// verified; a missing one starts empty.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return storage.ErrAlreadyOpen
	}

	meta, err := s.readMetadata()
	if err != nil {
		return err
	}

	if meta != nil {
		loadErr := s.loadSegments(meta)
		if loadErr != nil {
			s.held = make(map[containers.Kind][]containers.Container)

			return loadErr
		}
	}

	s.open = true

	return nil
}

// OpenExisting is Open for read paths: it fails with ErrNoStore when the
// directory holds no store metadata, instead of starting an empty store.
func (s *Store) OpenExisting() error {
	_, err := os.Stat(s.metadataPath())
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNoStore, s.dir)
	}

	if err != nil {
		return fmt.Errorf("stat store metadata: %w", err)
	}

	return s.Open()
}

// Close implements storage.Store. It flushes all held containers to disk
// before releasing the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return storage.ErrNotOpen
	}

	err := s.flush()
	if err != nil {
		return err
	}

	s.open = false
	s.held = make(map[containers.Kind][]containers.Container)

	return nil
}

// AddContainer implements storage.Store.
func (s *Store) AddContainer(c containers.Container) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return 0, storage.ErrNotOpen
	}

	return s.appendLocked(c), nil
}

// appendLocked assigns the next identifier for the container's kind and
// appends. Caller holds mu.
func (s *Store) appendLocked(c containers.Container) int64 {
	kind := c.ContainerKind()
	id := int64(len(s.held[kind]))

	c.SetIdentifier(id)
	s.held[kind] = append(s.held[kind], c)

	return id
}

// ContainerByIdentifier implements storage.Store.
func (s *Store) ContainerByIdentifier(kind containers.Kind, id int64) (containers.Container, error) {
	return s.containerAt(kind, int(id))
}

// ContainerByIndex implements storage.Store.
func (s *Store) ContainerByIndex(kind containers.Kind, index int) (containers.Container, error) {
	return s.containerAt(kind, index)
}

func (s *Store) containerAt(kind containers.Kind, position int) (containers.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, storage.ErrNotOpen
	}

	held := s.held[kind]
	if position < 0 || position >= len(held) {
		return nil, storage.ErrNotFound
	}

	return held[position], nil
}

// CountContainers implements storage.Store.
func (s *Store) CountContainers(kind containers.Kind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return 0, storage.ErrNotOpen
	}

	return len(s.held[kind]), nil
}

// Kinds implements storage.Store.
func (s *Store) Kinds() ([]containers.Kind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, storage.ErrNotOpen
	}

	return s.heldKindsLocked(), nil
}

// heldKindsLocked returns the kinds with at least one held container, in
// store processing order. Caller holds mu.
func (s *Store) heldKindsLocked() []containers.Kind {
	kinds := make([]containers.Kind, 0, len(s.held))
	for kind, held := range s.held {
		if len(held) > 0 {
			kinds = append(kinds, kind)
		}
	}

	return containers.OrderKinds(kinds)
}

// Containers implements storage.Store.
func (s *Store) Containers(kind containers.Kind) (iter.Seq[containers.Container], error) {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()

	if !open {
		return nil, storage.ErrNotOpen
	}

	seq := func(yield func(containers.Container) bool) {
		for i := 0; ; i++ {
			c, err := s.containerAt(kind, i)
			if err != nil {
				return
			}

			if !yield(c) {
				return
			}
		}
	}

	return seq, nil
}

func (s *Store) metadataPath() string {
	return filepath.Join(s.dir, metadataFilename)
}

func (s *Store) segmentPath(kind containers.Kind) string {
	return filepath.Join(s.dir, string(kind)+segmentSuffix)
}

// readMetadata returns nil metadata when the store directory holds no store
// yet.
func (s *Store) readMetadata() (*metadata, error) {
	data, err := os.ReadFile(s.metadataPath())
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read store metadata: %w", err)
	}

	var meta metadata

	unmarshalErr := json.Unmarshal(data, &meta)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal store metadata: %w", unmarshalErr)
	}

	if meta.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrFormatVersion, meta.FormatVersion)
	}

	return &meta, nil
}

// loadSegments decodes every segment named by the metadata into the
// in-memory index. Caller holds mu.
func (s *Store) loadSegments(meta *metadata) error {
	for _, segment := range meta.Segments {
		kind := containers.Kind(segment.Kind)

		data, err := os.ReadFile(s.segmentPath(kind))
		if err != nil {
			return fmt.Errorf("read segment %s: %w", segment.Kind, err)
		}

		sum := blake3.Sum256(data)
		if hex.EncodeToString(sum[:]) != segment.Checksum {
			return fmt.Errorf("%w: segment %s", ErrChecksumMismatch, segment.Kind)
		}

		held, err := decodeSegment(data)
		if err != nil {
			return fmt.Errorf("decode segment %s: %w", segment.Kind, err)
		}

		if len(held) != segment.Count {
			return fmt.Errorf("%w: segment %s holds %d containers, metadata says %d",
				ErrBadRecord, segment.Kind, len(held), segment.Count)
		}

		s.held[kind] = held
	}

	return nil
}

// decodeSegment decompresses and decodes one segment's records.
func decodeSegment(data []byte) ([]containers.Container, error) {
	decoder := decMode.NewDecoder(lz4.NewReader(bytes.NewReader(data)))

	var held []containers.Container

	for {
		var rec record

		err := decoder.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return held, nil
		}

		if err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}

		c, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}

		held = append(held, c)
	}
}

// flush writes every non-empty kind to its segment file and then the
// metadata, each staged to a temporary file and renamed into place. Caller
// holds mu.
func (s *Store) flush() error {
	err := os.MkdirAll(s.dir, dirPerm)
	if err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	meta := metadata{
		FormatVersion: FormatVersion,
		WrittenAt:     time.Now().UTC(),
	}

	for _, kind := range s.heldKindsLocked() {
		held := s.held[kind]

		checksum, err := s.writeSegment(kind, held)
		if err != nil {
			return err
		}

		meta.Segments = append(meta.Segments, segmentInfo{
			Kind:     string(kind),
			Count:    len(held),
			Checksum: checksum,
		})
	}

	return s.writeMetadata(meta)
}

// writeSegment encodes one kind's containers into its segment file and
// returns the hex BLAKE3 checksum of the file contents.
func (s *Store) writeSegment(kind containers.Kind, held []containers.Container) (string, error) {
	var buf bytes.Buffer

	compressor := lz4.NewWriter(&buf)
	encoder := encMode.NewEncoder(compressor)

	for _, c := range held {
		rec, err := encodeRecord(c)
		if err != nil {
			return "", err
		}

		encodeErr := encoder.Encode(rec)
		if encodeErr != nil {
			return "", fmt.Errorf("encode %s record: %w", kind, encodeErr)
		}
	}

	err := compressor.Close()
	if err != nil {
		return "", fmt.Errorf("close %s compressor: %w", kind, err)
	}

	err = writeFileAtomic(s.segmentPath(kind), buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("write segment %s: %w", kind, err)
	}

	sum := blake3.Sum256(buf.Bytes())

	return hex.EncodeToString(sum[:]), nil
}

func (s *Store) writeMetadata(meta metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store metadata: %w", err)
	}

	err = writeFileAtomic(s.metadataPath(), data)
	if err != nil {
		return fmt.Errorf("write store metadata: %w", err)
	}

	return nil
}

// writeFileAtomic stages data in a temporary file in the target directory
// and renames it over the destination.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)

	closeErr := tmp.Close()

	if writeErr != nil {
		os.Remove(tmpName)

		return fmt.Errorf("write temp file: %w", writeErr)
	}

	if closeErr != nil {
		os.Remove(tmpName)

		return fmt.Errorf("close temp file: %w", closeErr)
	}

	chmodErr := os.Chmod(tmpName, filePerm)
	if chmodErr != nil {
		os.Remove(tmpName)

		return fmt.Errorf("chmod temp file: %w", chmodErr)
	}

	renameErr := os.Rename(tmpName, path)
	if renameErr != nil {
		os.Remove(tmpName)

		return fmt.Errorf("rename temp file: %w", renameErr)
	}

	return nil
}
