// Package msgcat holds the user-facing message templates.
package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.ko.yaml
var defaultFiles embed.FS

const defaultFile = "messages.ko.yaml"

// Catalog maps dotted keys ("errors.illegal_move") to text/template sources.
// Missing template fields are errors, never "<no value>".
type Catalog struct {
	mu     sync.RWMutex
	data   map[string]string
	parsed map[string]*template.Template
}

// New loads the embedded messages, then every *.yaml in overrideDir on top.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{data: make(map[string]string), parsed: make(map[string]*template.Template)}

	raw, err := fs.ReadFile(defaultFiles, defaultFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}
	flat, err := flatten(raw)
	if err != nil {
		return nil, fmt.Errorf("parse embedded messages: %w", err)
	}
	c.merge(flat)

	if dir := strings.TrimSpace(overrideDir); dir != "" {
		if err := c.applyDir(dir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read message dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	owner := make(map[string]string)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		flat, err := flatten(b)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k := range flat {
			if prev, dup := owner[k]; dup {
				return fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
			}
			owner[k] = name
		}
		c.merge(flat)
	}
	return nil
}

func (c *Catalog) merge(flat map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range flat {
		c.data[k] = v
		delete(c.parsed, k)
	}
}

func flatten(b []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if err := flattenInto(root, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(src any, prefix string, out map[string]string) error {
	switch v := src.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flattenInto(child, key, out); err != nil {
				return err
			}
		}
	case string:
		if prefix == "" {
			return errors.New("string value without key")
		}
		out[prefix] = v
	case nil:
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
	return nil
}

// Has reports whether key has a template.
func (c *Catalog) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.data[strings.TrimSpace(key)]
	return ok
}

// Render executes the template stored under key.
func (c *Catalog) Render(key string, data any) (string, error) {
	key = strings.TrimSpace(key)
	t, err := c.template(key)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderOr is Render with a fallback for missing keys and template errors.
func (c *Catalog) RenderOr(key string, data any, fallback string) string {
	if c == nil {
		return fallback
	}
	s, err := c.Render(key, data)
	if err != nil {
		return fallback
	}
	return s
}

func (c *Catalog) template(key string) (*template.Template, error) {
	c.mu.RLock()
	t, ok := c.parsed[key]
	src, found := c.data[key]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}
	if !found || strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("template not found: %s", key)
	}
	t, err := template.New(key).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.parsed[key] = t
	c.mu.Unlock()
	return t, nil
}
