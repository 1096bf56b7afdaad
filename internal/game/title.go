package game

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"

	"github.com/RailyW/manosaba-index-bg-replace/internal/assets"
	"github.com/RailyW/manosaba-index-bg-replace/internal/config"
	"github.com/RailyW/manosaba-index-bg-replace/internal/texture"
)

var (
	ErrNoTexture   = errors.New("未找到 Texture2D")
	ErrEmptySource = errors.New("源 Texture2D 图像为空，无法替换。")
)

// TitlePaths locates the title-screen still bundles.
type TitlePaths struct {
	Stills string
	Source string // Emma's still, never modified
	Target string // the still shown after the first playthrough
	Backup string
}

func ResolveTitle(root string, t config.Title) (TitlePaths, error) {
	stills := filepath.Join(root, filepath.FromSlash(t.StillsDir))
	if fi, err := os.Stat(stills); err != nil || !fi.IsDir() {
		return TitlePaths{}, fmt.Errorf("目标目录不存在：%s", stills)
	}
	p := TitlePaths{
		Stills: stills,
		Source: filepath.Join(stills, t.Source),
		Target: filepath.Join(stills, t.Target),
	}
	p.Backup = p.Target + BackupSuffix
	for _, f := range []string{p.Source, p.Target} {
		ok, err := exists(f)
		if err != nil {
			return TitlePaths{}, err
		}
		if !ok {
			return TitlePaths{}, fmt.Errorf("未找到文件：%s", f)
		}
	}
	return p, nil
}

type TitlePatcher struct {
	Paths TitlePaths
	Out   io.Writer
}

func (p TitlePatcher) Run(c Choice) error {
	if c == Emma {
		return p.Emma()
	}
	return p.Shiro()
}

// Emma writes the source still's image into every Texture2D of the target
// bundle. The target is backed up once, after the new bundle is built.
func (p TitlePatcher) Emma() error {
	out, err := replaceTexture(p.Paths.Source, p.Paths.Target)
	if err != nil {
		return err
	}
	if err := backup(p.Out, p.Paths.Target, p.Paths.Backup); err != nil {
		return err
	}
	if err := WriteFileAtomic(p.Paths.Target, out); err != nil {
		return err
	}
	fmt.Fprintf(p.Out, "已完成：将艾玛背景写入 %s（仅替换内部 Texture2D 资源）。\n", filepath.Base(p.Paths.Target))
	return nil
}

func (p TitlePatcher) Shiro() error {
	return restore(p.Out, p.Paths.Target, p.Paths.Backup, "希罗背景", "二周目首页人物本身即为希罗")
}

func backup(out io.Writer, target, backup string) error {
	created, err := EnsureBackup(target, backup)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "已创建备份：%s\n", backup)
	} else {
		fmt.Fprintf(out, "检测到已存在备份，跳过覆盖：%s\n", backup)
	}
	return nil
}

func restore(out io.Writer, target, backup, what, shipped string) error {
	restored, err := Restore(target, backup)
	if err != nil {
		return err
	}
	if !restored {
		fmt.Fprintf(out, "未找到 %s。\n", filepath.Base(backup))
		fmt.Fprintf(out, "当前游戏文件并未发生过替换，%s，无需替换。\n", shipped)
		return nil
	}
	fmt.Fprintf(out, "已恢复：%s <- %s（%s）。\n", filepath.Base(target), filepath.Base(backup), what)
	return nil
}

// ReplaceTexture copies the image of the first Texture2D in srcPath into
// every Texture2D in dstPath and rewrites dstPath atomically.
func ReplaceTexture(srcPath, dstPath string) error {
	out, err := replaceTexture(srcPath, dstPath)
	if err != nil {
		return err
	}
	return WriteFileAtomic(dstPath, out)
}

func replaceTexture(srcPath, dstPath string) ([]byte, error) {
	src, err := assets.Load(srcPath)
	if err != nil {
		return nil, err
	}
	dst, err := assets.Load(dstPath)
	if err != nil {
		return nil, err
	}

	srcTex := src.Objects(assets.ClassTexture2D)
	if len(srcTex) == 0 {
		return nil, fmt.Errorf("源 bundle %w：%s", ErrNoTexture, srcPath)
	}
	dstTex := dst.Objects(assets.ClassTexture2D)
	if len(dstTex) == 0 {
		return nil, fmt.Errorf("目标 bundle %w：%s", ErrNoTexture, dstPath)
	}

	srcTree, err := srcTex[0].Read()
	if err != nil {
		return nil, err
	}
	data, err := texture.ImageData(srcTree, src)
	if errors.Is(err, texture.ErrEmptyImage) {
		return nil, ErrEmptySource
	}
	if err != nil {
		return nil, err
	}
	if info, err := texture.ReadInfo(srcTree); err == nil {
		glog.Infof("game: source %q %dx%d %v, %d bytes", info.Name, info.Width, info.Height, info.Format, len(data))
	}

	for _, ref := range dstTex {
		tree, err := ref.Read()
		if err != nil {
			return nil, err
		}
		if err := texture.CopyImage(tree, srcTree, data); err != nil {
			return nil, err
		}
		if err := ref.Write(tree); err != nil {
			return nil, err
		}
		glog.V(1).Infof("game: replaced %q (path id %d)", ref.Name(), ref.Object.PathID)
	}

	return dst.Bytes()
}
