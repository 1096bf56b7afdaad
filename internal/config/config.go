// Package config loads manosaba-bg.ini, the optional settings file kept next
// to the executable.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"gopkg.in/ini.v1"
)

const FileName = "manosaba-bg.ini"

// Layout of the Steam release.
const (
	StillsDir   = "manosaba_Data/StreamingAssets/aa/StandaloneWindows64/naninovel-backgrounds_assets_naninovel/backgrounds/stills"
	TitleSource = "1_1.bundle"
	TitleTarget = "2_1.bundle"

	ScriptsDir      = "manosaba_Data/StreamingAssets/aa/StandaloneWindows64/naninovel-scripts_assets_naninovel/scripts"
	FlashbackBundle = "flashback.bundle"
	FlashbackFind   = "Stills/2_1"
	FlashbackRepl   = "Stills/1_1"
)

// ruleSep separates several find or replace strings in one key.
const ruleSep = "|"

type Title struct {
	StillsDir string
	Source    string
	Target    string
}

type Flashback struct {
	Dir     string
	Bundle  string
	Asset   string // m_Name filter, empty for every script asset
	Find    []string
	Replace []string
}

type Config struct {
	Path      string
	Root      string
	Title     Title
	Flashback Flashback
}

func Default() *Config {
	return &Config{
		Title: Title{StillsDir: StillsDir, Source: TitleSource, Target: TitleTarget},
		Flashback: Flashback{
			Dir:     ScriptsDir,
			Bundle:  FlashbackBundle,
			Find:    []string{FlashbackFind},
			Replace: []string{FlashbackRepl},
		},
	}
}

// DefaultPath is FileName in the executable's directory.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return FileName
	}
	return filepath.Join(filepath.Dir(exe), FileName)
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	c := Default()
	c.Path = path
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		glog.V(1).Infof("config: %s not found, using defaults", path)
		return c, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	c.Root = f.Section("game").Key("root").String()

	t := f.Section("title")
	c.Title.StillsDir = t.Key("stills_dir").MustString(c.Title.StillsDir)
	c.Title.Source = t.Key("source").MustString(c.Title.Source)
	c.Title.Target = t.Key("target").MustString(c.Title.Target)

	fb := f.Section("flashback")
	c.Flashback.Dir = fb.Key("dir").MustString(c.Flashback.Dir)
	c.Flashback.Bundle = fb.Key("bundle").MustString(c.Flashback.Bundle)
	c.Flashback.Asset = fb.Key("asset").String()
	if fb.HasKey("find") {
		c.Flashback.Find = split(fb.Key("find").String())
	}
	if fb.HasKey("replace") {
		c.Flashback.Replace = strings.Split(fb.Key("replace").String(), ruleSep)
		for i, r := range c.Flashback.Replace {
			c.Flashback.Replace[i] = strings.TrimSpace(r)
		}
	}
	if len(c.Flashback.Find) != len(c.Flashback.Replace) {
		return nil, fmt.Errorf("config: %s: [flashback] has %d find and %d replace strings", path, len(c.Flashback.Find), len(c.Flashback.Replace))
	}
	glog.V(1).Infof("config: loaded %s", path)
	return c, nil
}

// split drops empty parts. Replacements keep them, an empty replacement
// deletes the text it matches.
func split(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ruleSep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SaveRoot remembers the game directory. Other keys in the file are kept.
func (c *Config) SaveRoot(root string) error {
	f, err := ini.LooseLoad(c.Path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	f.Section("game").Key("root").SetValue(root)
	if err := f.SaveTo(c.Path); err != nil {
		return fmt.Errorf("config: save %s: %w", c.Path, err)
	}
	c.Root = root
	return nil
}
