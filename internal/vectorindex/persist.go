package vectorindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ragchat/internal/domain"
)

// schemaVersion guards against loading caches written by an incompatible
// release.
const schemaVersion = 1

type docStoreFile struct {
	Version int            `json:"version"`
	Chunks  []domain.Chunk `json:"chunks"`
}

type indexStoreFile struct {
	Version   int         `json:"version"`
	ModelID   string      `json:"model_id"`
	Dimension int         `json:"dimension"`
	Vectors   [][]float64 `json:"vectors"`
}

// persist writes the index under dir as the two cache artifacts. Each file
// is written to a temp name and renamed, so a crash mid-persist leaves at
// most one sentinel present and the cache reads as invalid, never as a
// corrupt hit.
func (ix *Index) persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	ds := docStoreFile{Version: schemaVersion, Chunks: ix.chunks}
	if err := writeJSON(filepath.Join(dir, domain.DocStoreFile), ds); err != nil {
		return err
	}
	is := indexStoreFile{
		Version:   schemaVersion,
		ModelID:   ix.modelID,
		Dimension: ix.dimension,
		Vectors:   ix.vectors,
	}
	return writeJSON(filepath.Join(dir, domain.IndexStoreFile), is)
}

// load reconstructs an index from dir, verifying schema version, embedding
// model identity, and internal consistency.
func load(dir, wantModelID string) (*Index, error) {
	var ds docStoreFile
	if err := readJSON(filepath.Join(dir, domain.DocStoreFile), &ds); err != nil {
		return nil, err
	}
	var is indexStoreFile
	if err := readJSON(filepath.Join(dir, domain.IndexStoreFile), &is); err != nil {
		return nil, err
	}
	if ds.Version != schemaVersion || is.Version != schemaVersion {
		return nil, fmt.Errorf("cache schema version mismatch (doc %d, index %d, want %d)", ds.Version, is.Version, schemaVersion)
	}
	if wantModelID != "" && is.ModelID != wantModelID {
		return nil, fmt.Errorf("cache built with embedding model %q, configured %q", is.ModelID, wantModelID)
	}
	if len(ds.Chunks) != len(is.Vectors) {
		return nil, fmt.Errorf("cache inconsistent: %d chunks, %d vectors", len(ds.Chunks), len(is.Vectors))
	}
	if len(ds.Chunks) == 0 {
		return nil, fmt.Errorf("cache is empty")
	}
	return &Index{
		modelID:   is.ModelID,
		dimension: is.Dimension,
		chunks:    ds.Chunks,
		vectors:   is.Vectors,
	}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
