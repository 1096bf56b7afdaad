// Package prompt asks the questions of the interactive flows on a console.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/RailyW/manosaba-index-bg-replace/internal/game"
)

const rootExample = `E:\game\steam\steamapps\common\manosaba_game`

var ErrNoRoot = errors.New("未输入游戏根目录。")

type line struct {
	s   string
	err error
}

// Console reads answers line by line. A read blocked on input does not stop
// when the context is cancelled; its line is kept for the next question.
type Console struct {
	out   io.Writer
	in    *bufio.Reader
	lines chan line
}

func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) ReadLine(ctx context.Context) (string, error) {
	if c.lines == nil {
		c.lines = make(chan line)
		go c.readLoop()
	}
	select {
	case l, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return l.s, l.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Console) readLoop() {
	defer close(c.lines)
	for {
		s, err := c.in.ReadString('\n')
		if s == "" && err != nil {
			c.lines <- line{err: err}
			return
		}
		c.lines <- line{s: decode(strings.TrimRight(s, "\r\n"))}
	}
}

// decode turns console input in code page 936 into UTF-8.
func decode(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	if d, err := simplifiedchinese.GBK.NewDecoder().String(s); err == nil {
		return d
	}
	return s
}

// GameRoot asks for the install directory. An empty answer falls back to
// remembered, when set.
func (c *Console) GameRoot(ctx context.Context, remembered string) (string, error) {
	fmt.Fprintf(c.out, "请输入游戏根目录（例如 %s）：\n", rootExample)
	if remembered != "" {
		fmt.Fprintf(c.out, "（直接回车使用上次的目录：%s）\n", remembered)
	}
	fmt.Fprint(c.out, "> ")
	s, err := c.ReadLine(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	root := strings.Trim(strings.Trim(strings.TrimSpace(s), `"`), `'`)
	if root == "" {
		root = remembered
	}
	if root == "" {
		return "", ErrNoRoot
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return "", fmt.Errorf("目录不存在：%s", root)
	}
	return root, nil
}

// Choice prints the menu and asks until the answer names Emma or Shiro.
func (c *Console) Choice(ctx context.Context, menu ...string) (game.Choice, error) {
	for _, m := range menu {
		fmt.Fprintln(c.out, m)
	}
	for {
		fmt.Fprint(c.out, "> ")
		s, err := c.ReadLine(ctx)
		if err != nil {
			return 0, err
		}
		if ch, ok := game.ParseChoice(s); ok {
			return ch, nil
		}
		fmt.Fprintln(c.out, "输入无效，请输入 1/2（或 艾玛/希罗）。")
	}
}

// WaitForEnter keeps a double-clicked console window open until Enter.
func (c *Console) WaitForEnter(ctx context.Context) {
	fmt.Fprintln(c.out, "\n按回车键退出... / Press Enter to exit...")
	c.ReadLine(ctx)
}
