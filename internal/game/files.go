package game

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang/glog"
)

const BackupSuffix = ".backup"

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// WriteFileAtomic replaces path with data through a temporary file in the
// same directory, so a failed write never leaves a half-written bundle.
// The file keeps its permissions.
func WriteFileAtomic(path string, data []byte) error {
	perm := fs.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}
	return writeAtomic(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomic(path string, perm fs.FileMode, fill func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败：%w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		return fmt.Errorf("写入 %s 失败：%w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		glog.Warningf("game: chmod %s: %v", tmp.Name(), err)
		err = nil
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("替换 %s 失败：%w", path, err)
	}
	glog.V(1).Infof("game: wrote %s", path)
	return nil
}

// copyFile copies src over dst atomically and keeps src's mode and
// modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	if err := writeAtomic(dst, fi.Mode().Perm(), func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	}); err != nil {
		return err
	}
	return os.Chtimes(dst, fi.ModTime(), fi.ModTime())
}

// EnsureBackup copies target to backup unless a backup already exists; an
// existing backup is the pristine file and is never overwritten.
func EnsureBackup(target, backup string) (created bool, err error) {
	ok, err := exists(backup)
	if err != nil || ok {
		return false, err
	}
	if err := copyFile(target, backup); err != nil {
		return false, fmt.Errorf("创建备份失败：%w", err)
	}
	return true, nil
}

// Restore copies backup over target. It reports false when there is no
// backup, meaning the game files were never modified. The backup is kept.
func Restore(target, backup string) (restored bool, err error) {
	ok, err := exists(backup)
	if err != nil || !ok {
		return false, err
	}
	if err := copyFile(backup, target); err != nil {
		return false, fmt.Errorf("恢复失败：%w", err)
	}
	return true, nil
}
