// Package catalog provides the built-in practice modules and custom target files.
package catalog

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/signtutor/internal/model"
)

//go:embed modules.toml
var builtinModules string

// ErrUnknownModule is returned for a module id the catalog does not hold.
var ErrUnknownModule = errors.New("unknown module")

// Module is a named, ordered list of targets.
type Module struct {
	ID      string
	Title   string
	Targets []model.Target
}

type fileModules struct {
	Modules []fileModule `toml:"module"`
}

type fileModule struct {
	ID       string     `toml:"id"`
	Title    string     `toml:"title"`
	AssetDir string     `toml:"asset_dir"`
	Signs    []fileSign `toml:"sign"`
}

type fileSign struct {
	Name  string `toml:"name"`
	Hint  string `toml:"hint"`
	Image string `toml:"image"`
}

// Local serves modules from memory.
type Local struct {
	order   []string
	modules map[string]Module
}

var (
	builtinOnce sync.Once
	builtin     *Local
	builtinErr  error
)

// Builtin returns the embedded alphabets, numbers and words modules.
func Builtin() (*Local, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = Parse(builtinModules)
	})
	return builtin, builtinErr
}

// Parse decodes a TOML module list.
func Parse(data string) (*Local, error) {
	var raw fileModules
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode modules: %w", err)
	}
	l := &Local{modules: map[string]Module{}}
	for _, fm := range raw.Modules {
		id := strings.TrimSpace(fm.ID)
		if id == "" {
			return nil, fmt.Errorf("module without id")
		}
		if _, dup := l.modules[id]; dup {
			return nil, fmt.Errorf("duplicate module %q", id)
		}
		mod := Module{ID: id, Title: fm.Title}
		for _, s := range fm.Signs {
			asset := s.Image
			if asset == "" && fm.AssetDir != "" {
				asset = path.Join(fm.AssetDir, strings.ToLower(strings.ReplaceAll(s.Name, " ", "-"))+".png")
			}
			mod.Targets = append(mod.Targets, model.Target{
				ID:           id + "/" + s.Name,
				Label:        s.Name,
				Hint:         s.Hint,
				DisplayAsset: asset,
			})
		}
		l.order = append(l.order, id)
		l.modules[id] = mod
	}
	return l, nil
}

// Add registers a module, replacing one with the same id.
func (l *Local) Add(mod Module) {
	if _, ok := l.modules[mod.ID]; !ok {
		l.order = append(l.order, mod.ID)
	}
	l.modules[mod.ID] = mod
}

// Modules lists modules in declaration order.
func (l *Local) Modules() []Module {
	out := make([]Module, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.modules[id])
	}
	return out
}

// GetTargets returns a copy of the module's targets.
func (l *Local) GetTargets(_ context.Context, moduleID string) ([]model.Target, error) {
	mod, ok := l.modules[moduleID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}
	out := make([]model.Target, len(mod.Targets))
	copy(out, mod.Targets)
	return out, nil
}

// Title returns the display title of a module id.
func Title(moduleID string) string {
	if l, err := Builtin(); err == nil {
		if mod, ok := l.modules[moduleID]; ok && mod.Title != "" {
			return mod.Title
		}
	}
	return "Practice"
}

// LoadTargets reads one "label|hint" entry per line. Blank lines and lines
// starting with # are skipped.
func LoadTargets(path, moduleID string) ([]model.Target, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only targets file.
			_ = cerr
		}
	}()

	var targets []model.Target
	seen := map[string]struct{}{}
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		label, hint, _ := strings.Cut(line, "|")
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, fmt.Errorf("%s:%d: empty label", path, lineNo)
		}
		if _, dup := seen[label]; dup {
			return nil, fmt.Errorf("%s:%d: duplicate label %q", path, lineNo, label)
		}
		seen[label] = struct{}{}
		targets = append(targets, model.Target{
			ID:    moduleID + "/" + label,
			Label: label,
			Hint:  strings.TrimSpace(hint),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("targets file is empty")
	}
	return targets, nil
}
