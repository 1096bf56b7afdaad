package game

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"

	"github.com/RailyW/manosaba-index-bg-replace/internal/assets"
	"github.com/RailyW/manosaba-index-bg-replace/internal/config"
	"github.com/RailyW/manosaba-index-bg-replace/internal/script"
)

var ErrExpressionNotFound = errors.New("未找到需要替换的表达式")

type FlashbackPaths struct {
	Dir    string
	Bundle string
	Backup string
}

func ResolveFlashback(root string, f config.Flashback) (FlashbackPaths, error) {
	dir := filepath.Join(root, filepath.FromSlash(f.Dir))
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return FlashbackPaths{}, fmt.Errorf("目标目录不存在：%s", dir)
	}
	p := FlashbackPaths{Dir: dir, Bundle: filepath.Join(dir, f.Bundle)}
	p.Backup = p.Bundle + BackupSuffix
	ok, err := exists(p.Bundle)
	if err != nil {
		return FlashbackPaths{}, err
	}
	if !ok {
		return FlashbackPaths{}, fmt.Errorf("未找到文件：%s", p.Bundle)
	}
	return p, nil
}

// FlashbackPatcher edits the scripted expressions that decide which
// character the flashback scene shows.
type FlashbackPatcher struct {
	Paths FlashbackPaths
	Asset string // only script assets with this m_Name, or all when empty
	Rules []script.Rule
	Out   io.Writer
}

func (p FlashbackPatcher) Run(c Choice) error {
	if c == Emma {
		return p.Emma()
	}
	return p.Shiro()
}

// Emma rewrites the expressions starting from the backup when there is one,
// so running it again gives the same file. The backup is only made once
// something matched.
func (p FlashbackPatcher) Emma() error {
	if len(p.Rules) == 0 {
		return errors.New("未配置需要替换的表达式")
	}
	pristine := p.Paths.Bundle
	if ok, err := exists(p.Paths.Backup); err != nil {
		return err
	} else if ok {
		pristine = p.Paths.Backup
	}
	env, err := assets.Load(pristine)
	if err != nil {
		return err
	}

	total := 0
	for _, ref := range env.Objects(assets.ClassMonoBehaviour) {
		tree, err := ref.Read()
		if err != nil {
			if p.Asset != "" {
				return err
			}
			glog.Warningf("game: skip MonoBehaviour %d: %v", ref.Object.PathID, err)
			continue
		}
		name, _ := tree["m_Name"].(string)
		if p.Asset != "" && name != p.Asset {
			continue
		}
		n, err := script.Rewrite(tree, p.Rules)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		if err := ref.Write(tree); err != nil {
			return err
		}
		fmt.Fprintf(p.Out, "已修改脚本 %s：%d 处\n", name, n)
		total += n
	}
	if total == 0 {
		finds := make([]string, len(p.Rules))
		for i, r := range p.Rules {
			finds[i] = r.Find
		}
		return fmt.Errorf("%w：%s", ErrExpressionNotFound, strings.Join(finds, ", "))
	}

	out, err := env.Bytes()
	if err != nil {
		return err
	}
	if err := backup(p.Out, p.Paths.Bundle, p.Paths.Backup); err != nil {
		return err
	}
	if err := WriteFileAtomic(p.Paths.Bundle, out); err != nil {
		return err
	}
	fmt.Fprintf(p.Out, "已完成：将艾玛写入回忆场景（%s，共 %d 处表达式）。\n", filepath.Base(p.Paths.Bundle), total)
	return nil
}

func (p FlashbackPatcher) Shiro() error {
	return restore(p.Out, p.Paths.Bundle, p.Paths.Backup, "希罗回忆", "回忆场景人物本身即为希罗")
}
