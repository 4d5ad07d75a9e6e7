// Package filestore persists guild templates as one JSON file per template.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pscheid92/guildboard/internal/domain"
)

const (
	fileExt = ".json"
	dirMode = 0o755

	// Temp files never end in fileExt, so List cannot mistake them for templates.
	tempPattern = ".save-*.tmp"

	// maxStemBytes keeps stem + fileExt well below the common 255 byte
	// file name limit.
	maxStemBytes = 200
	hashLen      = 16
)

// TemplateRepo stores templates under a fixed directory, keyed by category
// name. Saving a template with an existing name replaces the file.
type TemplateRepo struct {
	dir string
}

var _ domain.TemplateRepository = (*TemplateRepo)(nil)

func NewTemplateRepo(dir string) *TemplateRepo {
	return &TemplateRepo{dir: dir}
}

// Dir returns the directory templates are written to.
func (r *TemplateRepo) Dir() string {
	return r.dir
}

// Ping fails when the template path exists but is not a directory. A
// missing directory passes; Save creates it.
func (r *TemplateRepo) Ping(_ context.Context) error {
	info, err := os.Stat(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat templates directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("templates path %s is not a directory", r.dir)
	}
	return nil
}

func (r *TemplateRepo) Save(_ context.Context, tpl *domain.Template) error {
	path, err := r.path(tpl.Category)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(tpl, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(r.dir, dirMode); err != nil {
		return fmt.Errorf("failed to create templates directory: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write template: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename template file: %w", err)
	}
	return nil
}

func (r *TemplateRepo) Load(_ context.Context, name string) (*domain.Template, error) {
	path, err := r.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	var tpl domain.Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template %s: %w", filepath.Base(path), err)
	}
	return &tpl, nil
}

// List returns the names of all stored templates, sorted. Names come from
// the files' category field because long names are shortened on disk. A
// missing directory yields an empty list.
func (r *TemplateRepo) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		name, err := r.categoryOf(e.Name())
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable template file", "file", e.Name(), "error", err)
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *TemplateRepo) categoryOf(file string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, file))
	if err != nil {
		return "", err
	}
	var head struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	if head.Category == "" {
		return strings.TrimSuffix(file, fileExt), nil
	}
	return head.Category, nil
}

func (r *TemplateRepo) Delete(_ context.Context, name string) error {
	path, err := r.path(name)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrTemplateNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

func (r *TemplateRepo) path(name string) (string, error) {
	file, err := FileName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.dir, file), nil
}

// FileName maps a template name to its file name. Path separators and NUL
// bytes become underscores so a name can never escape the directory. Names
// longer than maxStemBytes are cut on a rune boundary and suffixed with a
// hash of the full name.
func FileName(name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidTemplateName, name)
	}
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)
	if len(safe) > maxStemBytes {
		sum := sha256.Sum256([]byte(name))
		safe = truncate(safe, maxStemBytes-hashLen-1) + "~" + hex.EncodeToString(sum[:])[:hashLen]
	}
	return safe + fileExt, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
