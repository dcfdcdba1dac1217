// Package config loads the vault configuration from the project manifest.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AutoDetect controls whether free text is turned into tasks automatically.
type AutoDetect string

const (
	AutoDetectOff     AutoDetect = "off"
	AutoDetectSuggest AutoDetect = "suggest"
	AutoDetectAuto    AutoDetect = "auto"
)

// ParseAutoDetect returns the AutoDetect for s and whether s was valid.
func ParseAutoDetect(s string) (AutoDetect, bool) {
	switch AutoDetect(strings.TrimSpace(s)) {
	case AutoDetectOff:
		return AutoDetectOff, true
	case AutoDetectSuggest:
		return AutoDetectSuggest, true
	case AutoDetectAuto:
		return AutoDetectAuto, true
	}
	return AutoDetectOff, false
}

// CreationMode selects how a new task note is shaped.
type CreationMode string

const (
	ModeOff      CreationMode = "off"
	ModeGuided   CreationMode = "guided"
	ModeRefine   CreationMode = "refine"
	ModePlanThis CreationMode = "planThis"
)

// CreationModes lists the valid modes in display order.
var CreationModes = []CreationMode{ModeOff, ModeGuided, ModeRefine, ModePlanThis}

// ParseCreationMode returns the CreationMode for s and whether s was valid.
func ParseCreationMode(s string) (CreationMode, bool) {
	for _, m := range CreationModes {
		if string(m) == strings.TrimSpace(s) {
			return m, true
		}
	}
	return ModeOff, false
}

// Defaults for values the manifest leaves out.
const (
	DefaultExecutor        = "codex"
	DefaultExecutorTimeout = 10 * time.Minute
)

// ManifestFileNames are the supported manifest names, in order of precedence.
// package.json is consulted last, through its "codexVault" object.
var ManifestFileNames = []string{".codex-vault.yml", ".codex-vault.yaml"}

// PackageJSONSection is the package.json key holding vault settings.
const PackageJSONSection = "codexVault"

// Config is the effective vault configuration for one command invocation.
type Config struct {
	AutoDetectTasks  AutoDetect
	TaskCreationMode CreationMode
	Executor         string
	// ExecutorTimeout bounds each executor call. Zero means no timeout.
	ExecutorTimeout time.Duration
	// Source is the manifest the values came from, empty when none was found.
	Source string
	// Warnings collects values that were present but invalid.
	Warnings []string
}

// Default returns the configuration used when no manifest exists.
func Default() Config {
	return Config{
		AutoDetectTasks:  AutoDetectOff,
		TaskCreationMode: ModeOff,
		Executor:         DefaultExecutor,
		ExecutorTimeout:  DefaultExecutorTimeout,
	}
}

// manifest holds the raw manifest values by key. Values are decoded one
// field at a time so a badly typed field only costs that field.
type manifest map[string]any

// Manifest keys.
const (
	keyAutoDetectTasks  = "autoDetectTasks"
	keyTaskCreationMode = "taskCreationMode"
	keyExecutor         = "executor"
	keyExecutorTimeout  = "executorTimeout"
)

// str returns the string value of key. present is false when the key is
// missing or null; ok is false when it holds something other than a string.
func (m manifest) str(key string) (value string, present, ok bool) {
	raw, found := m[key]
	if !found || raw == nil {
		return "", false, true
	}
	value, ok = raw.(string)
	return value, true, ok
}

// Load reads the manifest under root. A missing manifest is not an error. A
// manifest that cannot be parsed returns the defaults together with the error,
// so callers may log it and carry on.
func Load(root string) (Config, error) {
	cfg := Default()

	m, source, err := readManifest(root)
	if err != nil {
		return cfg, err
	}
	if m == nil {
		return cfg, nil
	}
	cfg.Source = source
	cfg.apply(*m)
	return cfg, nil
}

func (c *Config) apply(m manifest) {
	if v, ok := c.field(m, keyAutoDetectTasks); ok {
		if mode, valid := ParseAutoDetect(v); valid {
			c.AutoDetectTasks = mode
		} else {
			c.warn(keyAutoDetectTasks, v)
		}
	}
	if v, ok := c.field(m, keyTaskCreationMode); ok {
		if mode, valid := ParseCreationMode(v); valid {
			c.TaskCreationMode = mode
		} else {
			c.warn(keyTaskCreationMode, v)
		}
	}
	if v, ok := c.field(m, keyExecutor); ok {
		if e := strings.TrimSpace(v); e != "" {
			c.Executor = e
		}
	}
	if v, ok := c.field(m, keyExecutorTimeout); ok {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.ExecutorTimeout = d
		} else {
			c.warn(keyExecutorTimeout, v)
		}
	}
}

// field returns a non-empty string value for key. Values of any other type
// are recorded as warnings and skipped.
func (c *Config) field(m manifest, key string) (string, bool) {
	v, present, ok := m.str(key)
	if !present {
		return "", false
	}
	if !ok {
		c.warn(key, fmt.Sprint(m[key]))
		return "", false
	}
	return v, v != ""
}

func (c *Config) warn(key, value string) {
	c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s %q, using default", key, value))
}

func readManifest(root string) (*manifest, string, error) {
	for _, name := range ManifestFileNames {
		p := filepath.Join(root, name)
		data, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", p, err)
		}
		m := manifest{}
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, "", fmt.Errorf("parse %s: %w", p, err)
		}
		return &m, p, nil
	}

	p := filepath.Join(root, "package.json")
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", p, err)
	}
	var pkg map[string]json.RawMessage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", p, err)
	}
	raw, ok := pkg[PackageJSONSection]
	if !ok {
		return nil, "", nil
	}
	m := manifest{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, "", fmt.Errorf("parse %s: %q must be an object: %w", p, PackageJSONSection, err)
	}
	return &m, p, nil
}
