package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"
)

// Configuration is the merged interpreter settings: built-in defaults,
// overlaid by moss.toml, overlaid by environment variables. Command line
// flags are applied on top by the caller.
type Configuration struct {
	Version      string
	RootPath     string
	MossHome     string
	ModulePath   []string
	MaxCallDepth int
	DebugJsonAST bool
	LogLevel     string
	LogFile      string
}

// fileConfig is the moss.toml schema.
type fileConfig struct {
	Roots        []string `toml:"roots"`
	MaxCallDepth int      `toml:"max_call_depth"`
	LogLevel     string   `toml:"log_level"`
	LogFile      string   `toml:"log_file"`
}

const configFileName = "moss.toml"

// LoadConfiguration builds the configuration from defaults, an optional
// moss.toml (current directory first, then MOSS_HOME) and the MOSS_*
// environment variables.
func LoadConfiguration(version string) (*Configuration, error) {
	cfg := &Configuration{
		Version:      version,
		MaxCallDepth: 0, // 0 means "use the interpreter default"
		LogLevel:     "error",
	}

	cfg.MossHome = env.Str("MOSS_HOME", "")

	if err := cfg.readConfigFile(); err != nil {
		return nil, err
	}

	if path := env.Str("MOSS_PATH", ""); path != "" {
		for _, root := range filepath.SplitList(path) {
			if root != "" {
				cfg.ModulePath = append(cfg.ModulePath, root)
			}
		}
	}
	if depth := env.Int("MOSS_MAX_DEPTH", 0); depth > 0 {
		cfg.MaxCallDepth = depth
	}
	if level := env.Str("MOSS_LOG_LEVEL", ""); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}

func (c *Configuration) readConfigFile() error {
	candidates := []string{configFileName}
	if c.MossHome != "" {
		candidates = append(candidates, filepath.Join(c.MossHome, configFileName))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		c.ModulePath = append(c.ModulePath, fc.Roots...)
		if fc.MaxCallDepth > 0 {
			c.MaxCallDepth = fc.MaxCallDepth
		}
		if fc.LogLevel != "" {
			c.LogLevel = fc.LogLevel
		}
		if fc.LogFile != "" {
			c.LogFile = fc.LogFile
		}
		return nil
	}
	return nil
}

// SearchRoots is the ordered module search path: the -root override first,
// then the script's directory, then configured roots, then the conventional
// `modules` and `lib` directories, then MOSS_HOME.
func (c *Configuration) SearchRoots(scriptDir string) []string {
	var roots []string
	seen := map[string]bool{}
	add := func(root string) {
		root = strings.TrimSpace(root)
		if root == "" || seen[root] {
			return
		}
		seen[root] = true
		roots = append(roots, root)
	}

	add(c.RootPath)
	add(scriptDir)
	for _, root := range c.ModulePath {
		add(root)
	}
	add(".")
	add("modules")
	add("lib")
	if c.MossHome != "" {
		add(filepath.Join(c.MossHome, "modules"))
	}
	return roots
}
