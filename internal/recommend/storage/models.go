// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cadence/internal/recommend/algorithms"
)

// ErrModelNotFound is returned when no stored model matches a lookup.
var ErrModelNotFound = errors.New("model not found")

const modelFileSuffix = ".gob.gz"

// ModelMetadata contains information about a stored model.
type ModelMetadata struct {
	// Name is the algorithm name (e.g., "als").
	Name string `json:"name"`

	// Version is the model version (monotonically increasing per name).
	Version int `json:"version"`

	// ModelID identifies the model in emitted messages.
	ModelID string `json:"model_id"`

	// ReportFile is the training report published alongside the model.
	ReportFile string `json:"report_file"`

	// TrainedAt is when the model was created.
	TrainedAt time.Time `json:"trained_at"`

	// SavedAt is when the model was saved.
	SavedAt time.Time `json:"saved_at"`

	InteractionCount int `json:"interaction_count"`
	ItemCount        int `json:"item_count"`
	UserCount        int `json:"user_count"`

	// Checksum is the SHA-256 checksum of the model data.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed model size in bytes.
	SizeBytes int64 `json:"size_bytes"`

	// TrainingDurationMS is how long training took.
	TrainingDurationMS int64 `json:"training_duration_ms"`
}

// Store manages model persistence in a directory of
// {name}_v{version}.gob.gz files.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// Keep track of latest version per algorithm
	versions map[string]int
}

// NewStore creates a new model store at the given directory.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}

	files, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}
	for _, f := range files {
		if f.version > s.versions[f.name] {
			s.versions[f.name] = f.version
		}
	}

	return s, nil
}

// modelFile is a model file found on disk.
type modelFile struct {
	name    string
	version int
}

// scan lists the model files in the storage directory.
func (s *Store) scan() ([]modelFile, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	var files []modelFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base, ok := strings.CutSuffix(entry.Name(), modelFileSuffix)
		if !ok {
			continue
		}
		name, version := parseModelFilename(base)
		if name == "" {
			continue
		}
		files = append(files, modelFile{name: name, version: version})
	}
	return files, nil
}

// versionsOf returns the stored versions of name, newest first.
func (s *Store) versionsOf(name string) ([]int, error) {
	files, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var versions []int
	for _, f := range files {
		if f.name == name {
			versions = append(versions, f.version)
		}
	}
	slices.Sort(versions)
	slices.Reverse(versions)
	return versions, nil
}

// parseModelFilename extracts algorithm name and version from a name like "als_v1".
func parseModelFilename(name string) (algName string, version int) {
	idx := strings.LastIndex(name, "_v")
	if idx < 1 {
		return "", 0
	}
	version, err := strconv.Atoi(name[idx+2:])
	if err != nil || version < 1 {
		return "", 0
	}
	return name[:idx], version
}

// storedFile is the on-disk format for model files.
type storedFile struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Save stores a model. A zero version saves the next version after the
// latest one. Missing model ids are generated, and a missing report file
// defaults to {model_id}.html. It returns the stored metadata.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, name string, version int, data interface{}, meta ModelMetadata) (ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return ModelMetadata{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if version == 0 {
		version = s.versions[name] + 1
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return ModelMetadata{}, fmt.Errorf("encode model: %w", err)
	}
	rawData := buf.Bytes()

	hash := sha256.Sum256(rawData)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return ModelMetadata{}, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return ModelMetadata{}, fmt.Errorf("finalize compression: %w", err)
	}

	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now()
	meta.Name = name
	meta.Version = version
	if meta.ModelID == "" {
		meta.ModelID = uuid.New().String()
	}
	if meta.ReportFile == "" {
		meta.ReportFile = meta.ModelID + ".html"
	}
	if meta.TrainedAt.IsZero() {
		meta.TrainedAt = meta.SavedAt
	}

	// Write to a temp file and rename so readers never see a partial model.
	filename := s.modelPath(name, version)
	tmp, err := os.CreateTemp(s.baseDir, ".model-*")
	if err != nil {
		return ModelMetadata{}, fmt.Errorf("create model file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }() //nolint:errcheck // temp file is gone after a successful rename

	sf := storedFile{Metadata: meta, CompressedData: compressed.Bytes()}
	if err := gob.NewEncoder(tmp).Encode(sf); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return ModelMetadata{}, fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return ModelMetadata{}, fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return ModelMetadata{}, fmt.Errorf("install model file: %w", err)
	}

	if version > s.versions[name] {
		s.versions[name] = version
	}

	return meta, nil
}

// readFile decodes the envelope of a model file.
func (s *Store) readFile(name string, version int) (*storedFile, error) {
	f, err := os.Open(s.modelPath(name, version)) //nolint:gosec // filename is constructed from trusted name parameter
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s v%d: %w", name, version, ErrModelNotFound)
		}
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return &sf, nil
}

// Load loads a model by name and version into target.
// If version is 0, loads the latest version.
func (s *Store) Load(ctx context.Context, name string, version int, target interface{}) (*ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrModelNotFound)
		}
	}

	sf, err := s.readFile(name, version)
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	return &sf.Metadata, nil
}

// GetLatestVersion returns the latest version number for a model.
func (s *Store) GetLatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[name]
	return version, ok
}

// ListModels returns metadata for every stored version of every model,
// newest TrainedAt first. Unreadable files are skipped.
func (s *Store) ListModels(ctx context.Context) ([]ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	models := make([]ModelMetadata, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sf, err := s.readFile(f.name, f.version)
		if err != nil {
			continue
		}
		models = append(models, sf.Metadata)
	}

	slices.SortFunc(models, func(a, b ModelMetadata) int {
		if c := b.TrainedAt.Compare(a.TrainedAt); c != 0 {
			return c
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return b.Version - a.Version
	})
	return models, nil
}

// Newest returns the metadata of the most recently trained version of name.
// Ties on TrainedAt go to the higher version.
func (s *Store) Newest(ctx context.Context, name string) (ModelMetadata, error) {
	models, err := s.ListModels(ctx)
	if err != nil {
		return ModelMetadata{}, err
	}
	for _, m := range models {
		if m.Name == name {
			return m, nil
		}
	}
	return ModelMetadata{}, fmt.Errorf("%s: %w", name, ErrModelNotFound)
}

// Delete removes a specific model version.
func (s *Store) Delete(ctx context.Context, name string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.modelPath(name, version)); err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	return s.refreshVersion(name)
}

// Prune removes old model versions, keeping only the latest N versions.
func (s *Store) Prune(ctx context.Context, name string, keepVersions int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keepVersions < 1 {
		keepVersions = 1
	}

	versions, err := s.versionsOf(name)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, v := range versions[min(keepVersions, len(versions)):] {
		if err := os.Remove(s.modelPath(name, v)); err != nil {
			return removed, fmt.Errorf("prune %s v%d: %w", name, v, err)
		}
		removed++
	}
	return removed, s.refreshVersion(name)
}

// refreshVersion recomputes the latest version of name from disk.
// Must be called with mu held.
func (s *Store) refreshVersion(name string) error {
	versions, err := s.versionsOf(name)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		delete(s.versions, name)
		return nil
	}
	s.versions[name] = versions[0]
	return nil
}

// modelPath returns the file path for a model.
func (s *Store) modelPath(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, modelFileSuffix))
}

// Register gob types for serialization.
//
//nolint:gochecknoinits // gob.Register must be called in init for type registration
func init() {
	gob.Register(algorithms.ALSState{})
	gob.Register(ModelMetadata{})
	gob.Register(storedFile{})
}
