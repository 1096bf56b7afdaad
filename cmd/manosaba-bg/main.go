// Command manosaba-bg switches the character shown on the manosaba title
// screen and in the flashback scene between Emma and Shiro.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/golang/glog"
)

func main() {
	code := run()
	glog.Flush()
	os.Exit(code)
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Println("\n用户取消操作。")
	default:
		fmt.Printf("\n发生错误：%v\n", err)
	}
	if pause && !opts.noPause && ctx.Err() == nil {
		console.WaitForEnter(ctx)
	}
	if err != nil {
		return 1
	}
	return 0
}
