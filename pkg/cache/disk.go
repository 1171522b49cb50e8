package cache

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"
)

// magic and version identify an ordo_jit_cache/ directory's index.bin.
// Mismatching either invalidates the whole directory (spec.md §6) rather
// than attempting a partial, possibly-corrupt read.
var magic = [8]byte{'O', 'R', 'D', 'O', 'J', 'I', 'T', 0}

const diskVersion uint16 = 1

// engineVersionWidth is the fixed width Key.EngineVersion is packed into on
// disk (truncated or null-padded). 24 bytes comfortably holds a semver
// string; index.bin's on-disk key record is therefore 8+8+24 = 40 bytes,
// matching spec.md §6's "key(40 bytes)".
const engineVersionWidth = 24

// CacheError reports an L2 failure distinct from a cache miss — a miss
// means "not present"; a CacheError means "present but unusable".
type CacheError struct {
	Op     string
	Reason string
}

func (e *CacheError) Error() string { return fmt.Sprintf("cache %s: %s", e.Op, e.Reason) }

var ErrCorruptArtifact = errors.New("cache: artifact checksum mismatch")

// IndexRecord is one entry of index.bin.
type IndexRecord struct {
	Key       Key
	FileName  string // 16 hex characters, the artifact's file name stem
	Size      uint64
	Checksum  [32]byte // blake2b-256
	CreatedAt time.Time
}

// L2 is the on-disk artifact store rooted at Dir/ordo_jit_cache/. It holds
// no in-memory index between calls — Index, Install and Lookup each read
// index.bin directly and Install rewrites it whole, since L2 is consulted far
// less often than L1 (only on an L1 miss) and correctness-under-concurrent-
// writers matters more than avoiding a file read.
type L2 struct {
	Dir           string // e.g. "/var/lib/ordo/ordo_jit_cache"
	EngineVersion string
}

// NewL2 creates an L2 rooted at dir (spec.md §6's l1_capacity sibling
// config, l2_dir) for artifacts compiled by engineVersion.
func NewL2(dir, engineVersion string) *L2 {
	return &L2{Dir: dir, EngineVersion: engineVersion}
}

func (l2 *L2) indexPath() string     { return filepath.Join(l2.Dir, "index.bin") }
func (l2 *L2) artifactsDir() string  { return filepath.Join(l2.Dir, "artifacts") }
func (l2 *L2) artifactPath(fileName string) string {
	return filepath.Join(l2.artifactsDir(), fileName+".bin")
}

// Init creates the directory layout and an empty index.bin if absent.
func (l2 *L2) Init() error {
	if err := os.MkdirAll(l2.artifactsDir(), 0o755); err != nil {
		return &CacheError{Op: "init", Reason: err.Error()}
	}
	if _, err := os.Stat(l2.indexPath()); errors.Is(err, os.ErrNotExist) {
		return l2.writeIndex(nil)
	} else if err != nil {
		return &CacheError{Op: "init", Reason: err.Error()}
	}
	return nil
}

// Index reads every record from index.bin, validating the magic/version
// header first. A mismatched header invalidates the whole directory
// (spec.md §6): Index returns an error rather than any partial records.
func (l2 *L2) Index() ([]IndexRecord, error) {
	f, err := os.Open(l2.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &CacheError{Op: "index", Reason: err.Error()}
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var gotMagic [8]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, &CacheError{Op: "index", Reason: "truncated header"}
	}
	if gotMagic != magic {
		return nil, &CacheError{Op: "index", Reason: "bad magic prefix"}
	}
	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, &CacheError{Op: "index", Reason: "truncated version"}
	}
	if version != diskVersion {
		return nil, &CacheError{Op: "index", Reason: fmt.Sprintf("unsupported version %d", version)}
	}

	engineVersion, err := readLengthPrefixedString(r)
	if err != nil {
		return nil, &CacheError{Op: "index", Reason: "truncated engine_version"}
	}
	if engineVersion != l2.EngineVersion {
		return nil, &CacheError{Op: "index", Reason: "engine_version mismatch, directory invalidated"}
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, &CacheError{Op: "index", Reason: "truncated index length"}
	}

	records := make([]IndexRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		rec, err := readIndexRecord(r)
		if err != nil {
			return nil, &CacheError{Op: "index", Reason: err.Error()}
		}
		records = append(records, rec)
	}
	return records, nil
}

// writeIndex atomically replaces index.bin with records (write to a temp
// file, then rename, so a crash mid-write never leaves a half-written
// index.bin behind for the next Index call to choke on).
func (l2 *L2) writeIndex(records []IndexRecord) error {
	tmp := l2.indexPath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &CacheError{Op: "write-index", Reason: err.Error()}
	}
	w := bufio.NewWriter(f)

	if _, err := w.Write(magic[:]); err != nil {
		f.Close()
		return &CacheError{Op: "write-index", Reason: err.Error()}
	}
	if err := binary.Write(w, binary.BigEndian, diskVersion); err != nil {
		f.Close()
		return &CacheError{Op: "write-index", Reason: err.Error()}
	}
	if err := writeLengthPrefixedString(w, l2.EngineVersion); err != nil {
		f.Close()
		return &CacheError{Op: "write-index", Reason: err.Error()}
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(records))); err != nil {
		f.Close()
		return &CacheError{Op: "write-index", Reason: err.Error()}
	}
	for _, rec := range records {
		if err := writeIndexRecord(w, rec); err != nil {
			f.Close()
			return &CacheError{Op: "write-index", Reason: err.Error()}
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return &CacheError{Op: "write-index", Reason: err.Error()}
	}
	if err := f.Close(); err != nil {
		return &CacheError{Op: "write-index", Reason: err.Error()}
	}
	return os.Rename(tmp, l2.indexPath())
}

// Install writes artifact's bytes under a file name derived from key,
// checksums them, and records the resulting IndexRecord in index.bin,
// replacing any earlier record for the same key.
func (l2 *L2) Install(key Key, artifact []byte) (IndexRecord, error) {
	sum := blake2b.Sum256(artifact)
	var keyBytes [16]byte
	binary.BigEndian.PutUint64(keyBytes[:8], key.StructuralHash)
	binary.BigEndian.PutUint64(keyBytes[8:], key.SchemaFingerprint)
	keySum := blake2b.Sum256(append(keyBytes[:], key.EngineVersion...))
	fileName := hex.EncodeToString(keySum[:8]) // 16 hex chars, spec.md §6's file_name(16 bytes hex)

	if err := os.MkdirAll(l2.artifactsDir(), 0o755); err != nil {
		return IndexRecord{}, &CacheError{Op: "install", Reason: err.Error()}
	}
	if err := os.WriteFile(l2.artifactPath(fileName), artifact, 0o644); err != nil {
		return IndexRecord{}, &CacheError{Op: "install", Reason: err.Error()}
	}

	rec := IndexRecord{
		Key:       key,
		FileName:  fileName,
		Size:      uint64(len(artifact)),
		Checksum:  sum,
		CreatedAt: time.Now(),
	}

	records, err := l2.Index()
	if err != nil {
		return IndexRecord{}, err
	}
	replaced := false
	for i := range records {
		if records[i].Key == key {
			records[i] = rec
			replaced = true
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	if err := l2.writeIndex(records); err != nil {
		return IndexRecord{}, err
	}
	return rec, nil
}

// Read loads and verifies the artifact bytes for rec, failing with
// ErrCorruptArtifact if the on-disk checksum no longer matches — spec.md §1
// treats the cache as trusted local state, so this check exists to catch
// accidental corruption (a truncated write, a failing disk), not a hostile
// actor (explicitly out of scope).
func (l2 *L2) Read(rec IndexRecord) ([]byte, error) {
	data, err := os.ReadFile(l2.artifactPath(rec.FileName))
	if err != nil {
		return nil, &CacheError{Op: "read", Reason: err.Error()}
	}
	sum := blake2b.Sum256(data)
	if sum != rec.Checksum {
		return nil, ErrCorruptArtifact
	}
	return data, nil
}

// Lookup finds rec's IndexRecord for key, if L2 has one.
func (l2 *L2) Lookup(key Key) (IndexRecord, bool, error) {
	records, err := l2.Index()
	if err != nil {
		return IndexRecord{}, false, err
	}
	for _, rec := range records {
		if rec.Key == key {
			return rec, true, nil
		}
	}
	return IndexRecord{}, false, nil
}

func writeIndexRecord(w io.Writer, rec IndexRecord) error {
	if err := binary.Write(w, binary.BigEndian, rec.Key.StructuralHash); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, rec.Key.SchemaFingerprint); err != nil {
		return err
	}
	var ev [engineVersionWidth]byte
	copy(ev[:], rec.Key.EngineVersion)
	if _, err := w.Write(ev[:]); err != nil {
		return err
	}
	var fn [16]byte
	copy(fn[:], rec.FileName)
	if _, err := w.Write(fn[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, rec.Size); err != nil {
		return err
	}
	if _, err := w.Write(rec.Checksum[:]); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, rec.CreatedAt.UnixNano())
}

func readIndexRecord(r io.Reader) (IndexRecord, error) {
	var rec IndexRecord
	if err := binary.Read(r, binary.BigEndian, &rec.Key.StructuralHash); err != nil {
		return rec, err
	}
	if err := binary.Read(r, binary.BigEndian, &rec.Key.SchemaFingerprint); err != nil {
		return rec, err
	}
	var ev [engineVersionWidth]byte
	if _, err := io.ReadFull(r, ev[:]); err != nil {
		return rec, err
	}
	rec.Key.EngineVersion = trimNulls(ev[:])

	var fn [16]byte
	if _, err := io.ReadFull(r, fn[:]); err != nil {
		return rec, err
	}
	rec.FileName = trimNulls(fn[:])

	if err := binary.Read(r, binary.BigEndian, &rec.Size); err != nil {
		return rec, err
	}
	if _, err := io.ReadFull(r, rec.Checksum[:]); err != nil {
		return rec, err
	}
	var nanos int64
	if err := binary.Read(r, binary.BigEndian, &nanos); err != nil {
		return rec, err
	}
	rec.CreatedAt = time.Unix(0, nanos)
	return rec, nil
}

func trimNulls(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func writeLengthPrefixedString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readLengthPrefixedString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
