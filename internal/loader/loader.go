// Package loader reads the document corpus from the filesystem.
package loader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"ragchat/internal/domain"
)

// textExtensions lists the file types loaded as plain text.
var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".rst":      true,
	".csv":      true,
	".log":      true,
	".html":     true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
}

// Directory loads every supported text file under a directory tree.
type Directory struct {
	log *zap.Logger
}

// NewDirectory creates a filesystem document loader.
func NewDirectory(log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{log: log}
}

// LoadDocuments walks dir and returns a document per readable text file,
// with file metadata attached. Hidden entries are skipped.
func (l *Directory) LoadDocuments(ctx context.Context, dir string) ([]domain.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("document directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("document directory %s: not a directory", dir)
	}

	var docs []domain.Document
	err = filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := fi.Name()
		if strings.HasPrefix(name, ".") {
			if fi.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if fi.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !textExtensions[ext] {
			l.log.Debug("skipping unsupported file", zap.String("path", path))
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, domain.Document{
			ID:      hashPath(path),
			Path:    path,
			Content: string(data),
			Metadata: map[string]any{
				"file_name":     name,
				"file_path":     path,
				"file_type":     ext,
				"file_size":     fi.Size(),
				"last_modified": fi.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no supported documents found in %s", dir)
	}
	l.log.Info("loaded documents", zap.String("dir", dir), zap.Int("count", len(docs)))
	return docs, nil
}

func hashPath(p string) string {
	h := sha1.Sum([]byte(p))
	return hex.EncodeToString(h[:8])
}
