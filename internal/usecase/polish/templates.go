package polish

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultTemplate is used whenever a requested template does not exist.
const DefaultTemplate = "default"

// Template holds the prompts for one kind of podcast. Prompts may contain
// {transcript} and {episode_title} placeholders.
type Template struct {
	Name          string `yaml:"name" json:"name"`
	Description   string `yaml:"description" json:"description"`
	PolishPrompt  string `yaml:"polish_prompt" json:"polish_prompt"`
	SummaryPrompt string `yaml:"summary_prompt" json:"summary_prompt"`
	// ChunkPrompt and FormatPrompt drive the long-document path. Empty
	// values use the built-in prompts.
	ChunkPrompt  string `yaml:"chunk_prompt,omitempty" json:"chunk_prompt,omitempty"`
	FormatPrompt string `yaml:"format_prompt,omitempty" json:"format_prompt,omitempty"`
}

// TemplateInfo is the display view of a template.
type TemplateInfo struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type templatesFile struct {
	Templates map[string]Template `yaml:"templates"`
}

// Templates is the template registry. Built-in templates are always
// present; entries from the YAML file override them by key.
type Templates struct {
	mu        sync.RWMutex
	path      string
	templates map[string]Template
}

// LoadTemplates reads templates from path. A missing file yields the
// built-in set; an unreadable or invalid file is an error.
func LoadTemplates(path string) (*Templates, error) {
	t := &Templates{path: path}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-reads the template file.
func (t *Templates) Reload() error {
	templates := builtinTemplates()

	if t.path != "" {
		// #nosec G304 -- path comes from configuration, not request input
		data, err := os.ReadFile(t.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Info("template file not found, using built-in templates",
				slog.String("path", t.path))
		case err != nil:
			return fmt.Errorf("read templates: %w", err)
		default:
			var file templatesFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse templates %s: %w", t.path, err)
			}
			for key, tpl := range file.Templates {
				templates[key] = tpl
			}
		}
	}

	t.mu.Lock()
	t.templates = templates
	t.mu.Unlock()
	return nil
}

// Get returns the named template, falling back to the default template.
// The returned key is the template actually used.
func (t *Templates) Get(name string) (Template, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if tpl, ok := t.templates[name]; ok {
		return tpl, name
	}
	if name != "" {
		slog.Warn("unknown template, using default", slog.String("template", name))
	}
	if tpl, ok := t.templates[DefaultTemplate]; ok {
		return tpl, DefaultTemplate
	}
	return builtinTemplates()[DefaultTemplate], DefaultTemplate
}

// Names returns every template key in sorted order.
func (t *Templates) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.templates))
	for key := range t.templates {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// Info returns the display name and description of a template.
func (t *Templates) Info(name string) (TemplateInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tpl, ok := t.templates[name]
	if !ok {
		return TemplateInfo{}, false
	}
	display := tpl.Name
	if display == "" {
		display = name
	}
	return TemplateInfo{Key: name, Name: display, Description: tpl.Description}, true
}

// Save writes tpl under key to the template file, keeping any other
// top-level keys, and reloads the registry.
func (t *Templates) Save(key string, tpl Template) error {
	if t.path == "" {
		return errors.New("templates have no backing file")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("template key is required")
	}
	if tpl.PolishPrompt == "" || tpl.SummaryPrompt == "" {
		return fmt.Errorf("template %q needs polish_prompt and summary_prompt", key)
	}

	doc := map[string]any{}
	// #nosec G304 -- path comes from configuration, not request input
	data, err := os.ReadFile(t.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read templates: %w", err)
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse templates %s: %w", t.path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}

	section, _ := doc["templates"].(map[string]any)
	if section == nil {
		section = map[string]any{}
	}
	section[key] = tpl
	doc["templates"] = section

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode templates: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o750); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	if err := os.WriteFile(t.path, out, 0o600); err != nil {
		return fmt.Errorf("write templates: %w", err)
	}

	slog.Info("template saved", slog.String("template", key), slog.String("path", t.path))
	return t.Reload()
}

// render substitutes the known placeholders. Other braces are left alone.
func render(prompt, transcript, title string) string {
	return strings.NewReplacer(
		"{transcript}", transcript,
		"{episode_title}", title,
	).Replace(prompt)
}

func (tpl Template) chunkPrompt() string {
	if tpl.ChunkPrompt != "" {
		return tpl.ChunkPrompt
	}
	return defaultChunkPrompt
}

func (tpl Template) formatPrompt() string {
	if tpl.FormatPrompt != "" {
		return tpl.FormatPrompt
	}
	return defaultFormatPrompt
}
