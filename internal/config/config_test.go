package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, p, c.Path)
	assert.Empty(t, c.Root)
	assert.Equal(t, Default().Title, c.Title)
	assert.Equal(t, []string{FlashbackFind}, c.Flashback.Find)
}

func TestLoadOverrides(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(p, []byte(`
[game]
root = E:\game\steam\steamapps\common\manosaba_game

[title]
target = 3_1.bundle

[flashback]
bundle = scripts_common.bundle
asset = Flashback03
find = if:shiro | Stills/2_1
replace = if:emma|Stills/1_1
`), 0o644))

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, `E:\game\steam\steamapps\common\manosaba_game`, c.Root)
	assert.Equal(t, StillsDir, c.Title.StillsDir)
	assert.Equal(t, TitleSource, c.Title.Source)
	assert.Equal(t, "3_1.bundle", c.Title.Target)
	assert.Equal(t, ScriptsDir, c.Flashback.Dir)
	assert.Equal(t, "scripts_common.bundle", c.Flashback.Bundle)
	assert.Equal(t, "Flashback03", c.Flashback.Asset)
	assert.Equal(t, []string{"if:shiro", "Stills/2_1"}, c.Flashback.Find)
	assert.Equal(t, []string{"if:emma", "Stills/1_1"}, c.Flashback.Replace)
}

func TestLoadRejectsUnpairedRules(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(p, []byte("[flashback]\nfind = a|b\n"), 0o644))
	_, err := Load(p)
	assert.ErrorContains(t, err, "2 find and 1 replace")
}

func TestLoadKeepsEmptyReplacements(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(p, []byte("[flashback]\nfind = if:shiro | Stills/2_1\nreplace = | Stills/1_1\n"), 0o644))
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"if:shiro", "Stills/2_1"}, c.Flashback.Find)
	assert.Equal(t, []string{"", "Stills/1_1"}, c.Flashback.Replace)

	require.NoError(t, os.WriteFile(p, []byte("[flashback]\nfind = Stills/2_1\nreplace =\n"), 0o644))
	c, err = Load(p)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, c.Flashback.Replace)
}

func TestSaveRootKeepsOtherKeys(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(p, []byte("[title]\ntarget = 3_1.bundle\n"), 0o644))
	c, err := Load(p)
	require.NoError(t, err)

	require.NoError(t, c.SaveRoot(`D:\manosaba`))
	assert.Equal(t, `D:\manosaba`, c.Root)

	c, err = Load(p)
	require.NoError(t, err)
	assert.Equal(t, `D:\manosaba`, c.Root)
	assert.Equal(t, "3_1.bundle", c.Title.Target)
}

func TestSaveRootCreatesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	c, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, c.SaveRoot("/games/manosaba"))

	c, err = Load(p)
	require.NoError(t, err)
	assert.Equal(t, "/games/manosaba", c.Root)
}
