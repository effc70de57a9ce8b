package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"kiosk-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileCatalogLoader reads the catalog from a JSON or YAML file of {question, options, answer} items.
type FileCatalogLoader struct {
	path string
}

func NewFileCatalogLoader(path string) *FileCatalogLoader {
	return &FileCatalogLoader{path: path}
}

func (l *FileCatalogLoader) LoadCatalog(_ context.Context) (domain.Catalog, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrCatalogNotFound
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(l.path, data)
}

// ParseCatalog decodes catalog bytes, picking the format from the file extension.
func ParseCatalog(name string, data []byte) (domain.Catalog, error) {
	var catalog domain.Catalog
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("decode catalog yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("decode catalog json: %w", err)
		}
	}
	for i, entry := range catalog {
		if entry.Answer < 0 || entry.Answer >= len(entry.Options) {
			return nil, fmt.Errorf("question %d: answer %d out of range", i, entry.Answer)
		}
	}
	if catalog == nil {
		catalog = domain.Catalog{}
	}
	return catalog, nil
}
