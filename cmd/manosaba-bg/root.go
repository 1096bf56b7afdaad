package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/RailyW/manosaba-index-bg-replace/internal/config"
	"github.com/RailyW/manosaba-index-bg-replace/internal/game"
	"github.com/RailyW/manosaba-index-bg-replace/internal/prompt"
)

var opts struct {
	config  string
	root    string
	choice  string
	noPause bool
}

var console = prompt.New(os.Stdin, os.Stdout)

// pause is set once a flow asked something on the console, so a
// double-clicked window stays open to show the result.
var pause bool

var rootCmd = &cobra.Command{
	Use:   "manosaba-bg",
	Short: "首页 / 回忆背景人物切换 (manosaba background switcher)",
	Long: `manosaba-bg 修改游戏的 Unity 资源包，在艾玛与希罗之间切换背景人物。
不带子命令运行时进入首页背景的交互流程。

manosaba-bg patches the game's Unity asset bundles to switch the pictured
character between Emma and Shiro. Without a subcommand it runs the
interactive title-screen flow.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(cmd.Context(), resolveTitle)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.config, "config", "", "配置文件 / settings file (default: "+config.FileName+" next to the executable)")
	pf.BoolVar(&opts.noPause, "no-pause", false, "结束时不等待回车 / do not wait for Enter before exiting")
	pf.AddGoFlagSet(flag.CommandLine)
	addFlowFlags(rootCmd)
}

func addFlowFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&opts.root, "root", "", "游戏根目录 / game install directory")
	cmd.Flags().StringVar(&opts.choice, "choice", "", "emma 或 shiro / emma or shiro")
}

func loadConfig() (*config.Config, error) {
	p := opts.config
	if p == "" {
		p = config.DefaultPath()
	}
	return config.Load(p)
}

type runner interface {
	Run(game.Choice) error
}

// resolver locates a flow's files under root, reports what it found and
// returns the patcher together with its menu.
type resolver func(root string, cfg *config.Config) (runner, []string, error)

func runFlow(ctx context.Context, resolve resolver) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root := opts.root
	if root == "" {
		pause = true
		if root, err = console.GameRoot(ctx, cfg.Root); err != nil {
			return err
		}
	} else if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return fmt.Errorf("目录不存在：%s", root)
	}

	r, menu, err := resolve(root, cfg)
	if err != nil {
		return err
	}

	var choice game.Choice
	if opts.choice != "" {
		c, ok := game.ParseChoice(opts.choice)
		if !ok {
			return fmt.Errorf("无效的 --choice：%q（应为 emma 或 shiro）", opts.choice)
		}
		choice = c
	} else {
		pause = true
		if choice, err = console.Choice(ctx, menu...); err != nil {
			return err
		}
	}
	glog.V(1).Infof("flow: root %s, choice %v", root, choice)

	if err := r.Run(choice); err != nil {
		return err
	}
	if root != cfg.Root {
		if err := cfg.SaveRoot(root); err != nil {
			glog.Warningf("remember game root: %v", err)
		}
	}
	fmt.Println("\n操作完成。")
	return nil
}
