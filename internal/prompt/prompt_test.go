package prompt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/RailyW/manosaba-index-bg-replace/internal/game"
)

func TestGameRootTrimsQuotes(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	c := New(strings.NewReader(`  "`+dir+`"  `+"\r\n"), &out)
	root, err := c.GameRoot(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, dir, root)
	assert.Contains(t, out.String(), `请输入游戏根目录（例如 E:\game\steam\steamapps\common\manosaba_game）：`)
	assert.NotContains(t, out.String(), "上次的目录")
}

func TestGameRootRemembered(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	root, err := New(strings.NewReader("\n"), &out).GameRoot(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, root)
	assert.Contains(t, out.String(), "（直接回车使用上次的目录："+dir+"）")
}

func TestGameRootErrors(t *testing.T) {
	_, err := New(strings.NewReader("\n"), io.Discard).GameRoot(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoRoot)
	assert.EqualError(t, err, "未输入游戏根目录。")

	_, err = New(strings.NewReader(""), io.Discard).GameRoot(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoRoot)

	_, err = New(strings.NewReader("/no/such/dir\n"), io.Discard).GameRoot(context.Background(), "")
	assert.EqualError(t, err, "目录不存在：/no/such/dir")
}

func TestChoiceRetriesOnInvalidInput(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("x\n\nShiro\n"), &out)
	ch, err := c.Choice(context.Background(), "\n请选择首页背景人物：", "  1) 艾玛", "  2) 希罗")
	require.NoError(t, err)
	assert.Equal(t, game.Shiro, ch)
	assert.Equal(t, 2, strings.Count(out.String(), "输入无效，请输入 1/2（或 艾玛/希罗）。"))
	assert.True(t, strings.HasPrefix(out.String(), "\n请选择首页背景人物：\n  1) 艾玛\n"))

	_, err = New(strings.NewReader("x\n"), io.Discard).Choice(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestChoiceDecodesGBK(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String("艾玛\r\n")
	require.NoError(t, err)
	ch, err := New(strings.NewReader(gbk), io.Discard).Choice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, game.Emma, ch)
}

func TestReadLineCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := New(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.ReadLine(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// the pending line is delivered to the next read
	go w.Write([]byte("2\n"))
	s, err := c.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", s)
}
