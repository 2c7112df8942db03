package cache

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/tellae/eqasim/internal/ctxlog"
)

// encMode encodes payloads and fingerprint material with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. The same logical value always produces identical
// bytes, which is what keeps fingerprints stable across runs.
var encMode cbor.EncMode

// decMode decodes payloads. Unknown fields are ignored so entries written
// by an older binary survive additive result-type changes.
var decMode cbor.DecMode

// zstdEncoder and zstdDecoder are reused across calls to avoid repeated
// initialization overhead. Both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Result types never use non-string map keys. When the decode
		// target is any-typed, pick map[string]any instead of the CBOR
		// default map[interface{}]interface{}.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cache: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("cache: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("cache: zstd decoder initialization failed: " + err.Error())
	}
}

// FingerprintInput gathers everything that determines whether a cached
// stage result is still valid.
type FingerprintInput struct {
	// Stage is the registered stage name.
	Stage string `cbor:"stage"`

	// Params holds the stage's resolved configuration values, keyed by
	// config key name. Only declared keys appear here.
	Params map[string]any `cbor:"params"`

	// Deps maps each dependency stage name to that stage's fingerprint,
	// so devalidation propagates transitively through the graph.
	Deps map[string]string `cbor:"deps"`

	// Token is the stage's validate token (for example the size of an
	// input file), or empty when the stage has no Validate hook.
	Token string `cbor:"token"`
}

// Fingerprint returns the hex-encoded BLAKE3 digest of the canonical CBOR
// encoding of in.
func Fingerprint(in FingerprintInput) (string, error) {
	encoded, err := encMode.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encoding fingerprint material for stage %q: %w", in.Stage, err)
	}
	sum := blake3.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// Store is an on-disk stage result cache rooted at a single directory,
// usually <working_directory>/cache. Entries live at <root>/<stage>/<fp>.
// Stale entries from earlier fingerprints are left in place so switching
// a parameter back reuses the earlier result.
type Store struct {
	root string
}

// Open ensures the cache directory exists and returns a store over it.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Path returns the on-disk location of a cache entry.
func (s *Store) Path(stage, fingerprint string) string {
	return filepath.Join(s.root, stage, fingerprint)
}

// Read loads a cached result. allocate must return a pointer to a zero
// value of the stage's result type; on a hit the populated pointer is
// returned. Any failure (missing entry, truncated payload, decode
// mismatch) is reported as a miss, never an error, so the stage simply
// executes again and the entry is rewritten.
func (s *Store) Read(ctx context.Context, stage, fingerprint string, allocate func() any) (any, bool) {
	log := ctxlog.FromContext(ctx)
	path := s.Path(stage, fingerprint)

	compressed, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Debug("Unreadable cache entry treated as miss.", "stage", stage, "path", path, "error", err)
		}
		return nil, false
	}

	payload, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		log.Debug("Corrupt cache entry treated as miss.", "stage", stage, "path", path, "error", err)
		return nil, false
	}

	target := allocate()
	if err := decMode.Unmarshal(payload, target); err != nil {
		log.Debug("Undecodable cache entry treated as miss.", "stage", stage, "path", path, "error", err)
		return nil, false
	}

	log.Debug("Cache hit.", "stage", stage, "fingerprint", fingerprint, "bytes", len(compressed))
	return target, true
}

// Write persists a stage result under its fingerprint. The entry is
// written to a temp file and renamed into place so a crash mid-write
// never leaves a partial entry behind under the final name.
func (s *Store) Write(ctx context.Context, stage, fingerprint string, result any) error {
	dir := filepath.Join(s.root, stage)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory for stage %q: %w", stage, err)
	}

	payload, err := encMode.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result of stage %q: %w", stage, err)
	}
	compressed := zstdEncoder.EncodeAll(payload, nil)

	tmp, err := os.CreateTemp(dir, fingerprint+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache entry for stage %q: %w", stage, err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache entry for stage %q: %w", stage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp cache entry for stage %q: %w", stage, err)
	}
	if err := os.Rename(tmpPath, s.Path(stage, fingerprint)); err != nil {
		return fmt.Errorf("renaming cache entry for stage %q: %w", stage, err)
	}
	success = true

	ctxlog.FromContext(ctx).Debug("Wrote cache entry.",
		"stage", stage,
		"fingerprint", fingerprint,
		"bytes", len(compressed))
	return nil
}
