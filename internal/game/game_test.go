package game

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RailyW/manosaba-index-bg-replace/internal/assets"
	"github.com/RailyW/manosaba-index-bg-replace/internal/config"
	"github.com/RailyW/manosaba-index-bg-replace/internal/script"
	"github.com/RailyW/manosaba-index-bg-replace/internal/texture"
	"github.com/RailyW/manosaba-index-bg-replace/internal/unitytest"
)

var (
	emmaPixels  = []byte{10, 20, 30, 255, 40, 50, 60, 255, 70, 80, 90, 255, 100, 110, 120, 255}
	shiroPixels = bytes.Repeat([]byte{0xEE}, 32)
)

// newTitleRoot lays out a game directory with both stills. Emma's texture
// is inline; Shiro's lives in a .resS resource node.
func newTitleRoot(t *testing.T) (string, TitlePaths) {
	root := t.TempDir()
	stills := filepath.Join(root, filepath.FromSlash(config.StillsDir))
	require.NoError(t, os.MkdirAll(stills, 0o755))

	emma := unitytest.Bundle(t, unitytest.Node{
		Path: "CAB-emma", Serialized: true,
		Data: unitytest.TextureFile(t, unitytest.Texture2D("1_1", 2, 2, int32(texture.RGBA32), emmaPixels)),
	})
	res := "archive:/CAB-shiro/CAB-shiro.resS"
	shiro := unitytest.Bundle(t,
		unitytest.Node{
			Path: "CAB-shiro", Serialized: true,
			Data: unitytest.TextureFile(t,
				unitytest.Streamed(unitytest.Texture2D("2_1", 4, 2, int32(texture.RGBA32), nil), res, 0, len(shiroPixels))),
		},
		unitytest.Node{Path: "CAB-shiro.resS", Data: shiroPixels},
	)
	require.NoError(t, os.WriteFile(filepath.Join(stills, "1_1.bundle"), emma, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(stills, "2_1.bundle"), shiro, 0o644))

	p, err := ResolveTitle(root, config.Default().Title)
	require.NoError(t, err)
	return root, p
}

func readTexture(t *testing.T, path string) (map[string]any, []byte) {
	env, err := assets.Load(path)
	require.NoError(t, err)
	refs := env.Objects(assets.ClassTexture2D)
	require.Len(t, refs, 1)
	tree, err := refs[0].Read()
	require.NoError(t, err)
	data, err := texture.ImageData(tree, env)
	require.NoError(t, err)
	return tree, data
}

func TestParseChoice(t *testing.T) {
	for _, s := range []string{"1", "艾玛", "emma", " EMMA ", "a", "A"} {
		c, ok := ParseChoice(s)
		assert.True(t, ok, s)
		assert.Equal(t, Emma, c, s)
	}
	for _, s := range []string{"2", "希罗", "Shiro", "s"} {
		c, ok := ParseChoice(s)
		assert.True(t, ok, s)
		assert.Equal(t, Shiro, c, s)
	}
	for _, s := range []string{"", "3", "hiro", "艾"} {
		_, ok := ParseChoice(s)
		assert.False(t, ok, s)
	}
	assert.Equal(t, "emma", Emma.String())
	assert.Equal(t, "unknown", Choice(0).String())
}

func TestResolveTitleErrors(t *testing.T) {
	root := t.TempDir()
	_, err := ResolveTitle(root, config.Default().Title)
	assert.ErrorContains(t, err, "目标目录不存在：")

	stills := filepath.Join(root, filepath.FromSlash(config.StillsDir))
	require.NoError(t, os.MkdirAll(stills, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stills, "1_1.bundle"), nil, 0o644))
	_, err = ResolveTitle(root, config.Default().Title)
	assert.EqualError(t, err, "未找到文件："+filepath.Join(stills, "2_1.bundle"))
}

func TestTitleEmmaThenShiro(t *testing.T) {
	_, p := newTitleRoot(t)
	original, err := os.ReadFile(p.Target)
	require.NoError(t, err)

	var out bytes.Buffer
	patcher := TitlePatcher{Paths: p, Out: &out}
	require.NoError(t, patcher.Run(Emma))
	assert.Contains(t, out.String(), "已创建备份："+p.Backup)
	assert.Contains(t, out.String(), "已完成：将艾玛背景写入 2_1.bundle（仅替换内部 Texture2D 资源）。")

	backup, err := os.ReadFile(p.Backup)
	require.NoError(t, err)
	assert.Equal(t, original, backup)

	tree, data := readTexture(t, p.Target)
	assert.Equal(t, emmaPixels, data)
	assert.Equal(t, "2_1", tree["m_Name"])
	assert.Equal(t, int32(2), tree["m_Width"])
	info, err := texture.ReadInfo(tree)
	require.NoError(t, err)
	assert.Empty(t, info.StreamPath)

	// a second run keeps the pristine backup
	out.Reset()
	require.NoError(t, patcher.Emma())
	assert.Contains(t, out.String(), "检测到已存在备份，跳过覆盖："+p.Backup)
	backup, err = os.ReadFile(p.Backup)
	require.NoError(t, err)
	assert.Equal(t, original, backup)

	out.Reset()
	require.NoError(t, patcher.Run(Shiro))
	assert.Equal(t, "已恢复：2_1.bundle <- 2_1.bundle.backup（希罗背景）。\n", out.String())
	restored, err := os.ReadFile(p.Target)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
	assert.FileExists(t, p.Backup)

	_, data = readTexture(t, p.Target)
	assert.Equal(t, shiroPixels, data)
}

func TestTitleShiroWithoutBackup(t *testing.T) {
	_, p := newTitleRoot(t)
	var out bytes.Buffer
	require.NoError(t, TitlePatcher{Paths: p, Out: &out}.Shiro())
	assert.Equal(t, "未找到 2_1.bundle.backup。\n当前游戏文件并未发生过替换，二周目首页人物本身即为希罗，无需替换。\n", out.String())
	assert.NoFileExists(t, p.Backup)
}

func TestReplaceTextureWithoutTexture(t *testing.T) {
	_, p := newTitleRoot(t)
	empty := unitytest.Bundle(t, unitytest.Node{Path: "CAB-empty", Serialized: true, Data: unitytest.TextureFile(t)})
	require.NoError(t, os.WriteFile(p.Source, empty, 0o644))

	err := ReplaceTexture(p.Source, p.Target)
	assert.ErrorIs(t, err, ErrNoTexture)
	assert.EqualError(t, err, "源 bundle 未找到 Texture2D："+p.Source)

	err = ReplaceTexture(p.Target, p.Source)
	assert.EqualError(t, err, "目标 bundle 未找到 Texture2D："+p.Source)
}

func TestTitleEmmaFailureLeavesNoBackup(t *testing.T) {
	_, p := newTitleRoot(t)
	empty := unitytest.Bundle(t, unitytest.Node{Path: "CAB-empty", Serialized: true, Data: unitytest.TextureFile(t)})
	require.NoError(t, os.WriteFile(p.Source, empty, 0o644))

	err := TitlePatcher{Paths: p, Out: &bytes.Buffer{}}.Emma()
	assert.ErrorIs(t, err, ErrNoTexture)
	assert.NoFileExists(t, p.Backup)
}

func TestReplaceTextureEmptySource(t *testing.T) {
	_, p := newTitleRoot(t)
	blank := unitytest.Bundle(t, unitytest.Node{
		Path: "CAB-blank", Serialized: true,
		Data: unitytest.TextureFile(t, unitytest.Texture2D("1_1", 2, 2, int32(texture.RGBA32), nil)),
	})
	require.NoError(t, os.WriteFile(p.Source, blank, 0o644))
	before, err := os.ReadFile(p.Target)
	require.NoError(t, err)

	assert.ErrorIs(t, ReplaceTexture(p.Source, p.Target), ErrEmptySource)
	after, err := os.ReadFile(p.Target)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "2_1.bundle")
	require.NoError(t, os.WriteFile(p, []byte("old"), 0o600))

	require.NoError(t, WriteFileAtomic(p, []byte("new")))
	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	err = WriteFileAtomic(filepath.Join(dir, "missing", "x.bundle"), []byte("x"))
	assert.Error(t, err)
}

func TestEnsureBackupKeepsTimes(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "2_1.bundle")
	require.NoError(t, os.WriteFile(target, []byte("pristine"), 0o644))
	mtime := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(target, mtime, mtime))

	created, err := EnsureBackup(target, target+BackupSuffix)
	require.NoError(t, err)
	assert.True(t, created)
	fi, err := os.Stat(target + BackupSuffix)
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(mtime))

	require.NoError(t, os.WriteFile(target, []byte("modified"), 0o644))
	created, err = EnsureBackup(target, target+BackupSuffix)
	require.NoError(t, err)
	assert.False(t, created)
	got, err := os.ReadFile(target + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, "pristine", string(got))
}

func newFlashbackRoot(t *testing.T, scripts ...map[string]any) FlashbackPaths {
	root := t.TempDir()
	dir := filepath.Join(root, filepath.FromSlash(config.ScriptsDir))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	b := unitytest.Bundle(t, unitytest.Node{Path: "CAB-scripts", Serialized: true, Data: unitytest.ScriptFile(t, scripts...)})
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FlashbackBundle), b, 0o644))
	p, err := ResolveFlashback(root, config.Default().Flashback)
	require.NoError(t, err)
	return p
}

func scriptLines(t *testing.T, path string) []string {
	env, err := assets.Load(path)
	require.NoError(t, err)
	var lines []string
	for _, ref := range env.Objects(assets.ClassMonoBehaviour) {
		tree, err := ref.Read()
		require.NoError(t, err)
		for _, s := range script.Strings(tree) {
			if strings.HasPrefix(s, "@") {
				lines = append(lines, s)
			}
		}
	}
	return lines
}

func TestFlashbackEmmaIsIdempotent(t *testing.T) {
	p := newFlashbackRoot(t,
		unitytest.MonoBehaviour("Prologue", "@back Stills/2_1"),
		unitytest.MonoBehaviour("Flashback", "@back Stills/2_1 if:!seen", "@char Shiro"),
	)
	var out bytes.Buffer
	patcher := FlashbackPatcher{
		Paths: p,
		Asset: "Flashback",
		Rules: []script.Rule{{Find: "Stills/2_1", Replace: "Stills/1_1"}},
		Out:   &out,
	}
	require.NoError(t, patcher.Run(Emma))
	assert.Contains(t, out.String(), "已修改脚本 Flashback：1 处")
	want := []string{"@back Stills/2_1", "@back Stills/1_1 if:!seen", "@char Shiro"}
	assert.Equal(t, want, scriptLines(t, p.Bundle))

	first, err := os.ReadFile(p.Bundle)
	require.NoError(t, err)
	require.NoError(t, patcher.Emma())
	second, err := os.ReadFile(p.Bundle)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	out.Reset()
	require.NoError(t, patcher.Run(Shiro))
	assert.Equal(t, []string{"@back Stills/2_1", "@back Stills/2_1 if:!seen", "@char Shiro"}, scriptLines(t, p.Bundle))
}

func TestFlashbackNothingToReplace(t *testing.T) {
	p := newFlashbackRoot(t, unitytest.MonoBehaviour("Flashback", "@char Shiro"))
	before, err := os.ReadFile(p.Bundle)
	require.NoError(t, err)

	err = FlashbackPatcher{
		Paths: p,
		Rules: []script.Rule{{Find: "Stills/2_1", Replace: "Stills/1_1"}},
		Out:   &bytes.Buffer{},
	}.Emma()
	assert.ErrorIs(t, err, ErrExpressionNotFound)
	after, err := os.ReadFile(p.Bundle)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, p.Backup)

	var out bytes.Buffer
	require.NoError(t, FlashbackPatcher{Paths: p, Out: &out}.Shiro())
	assert.Contains(t, out.String(), "未找到 flashback.bundle.backup。")

	err = FlashbackPatcher{Paths: p, Out: &bytes.Buffer{}}.Emma()
	assert.Error(t, err)
}

func TestFlashbackRuleMatchingNamespace(t *testing.T) {
	p := newFlashbackRoot(t, unitytest.MonoBehaviour("Naninovel", "@goto Naninovel.Prologue"))
	err := FlashbackPatcher{
		Paths: p,
		Rules: []script.Rule{{Find: "Naninovel", Replace: "Story"}},
		Out:   &bytes.Buffer{},
	}.Emma()
	require.NoError(t, err)
	assert.Equal(t, []string{"@goto Story.Prologue"}, scriptLines(t, p.Bundle))
	assert.FileExists(t, p.Backup)
}

func TestResolveFlashbackMissingBundle(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, filepath.FromSlash(config.ScriptsDir))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	_, err := ResolveFlashback(root, config.Default().Flashback)
	assert.EqualError(t, err, "未找到文件："+filepath.Join(dir, config.FlashbackBundle))
}
