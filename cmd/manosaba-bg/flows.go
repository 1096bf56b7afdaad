package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/RailyW/manosaba-index-bg-replace/internal/config"
	"github.com/RailyW/manosaba-index-bg-replace/internal/game"
	"github.com/RailyW/manosaba-index-bg-replace/internal/script"
)

var titleCmd = &cobra.Command{
	Use:   "title",
	Short: "切换首页背景人物 / switch the title-screen character",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(cmd.Context(), resolveTitle)
	},
}

var flashbackCmd = &cobra.Command{
	Use:   "flashback",
	Short: "切换回忆场景人物 / switch the flashback-scene character",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(cmd.Context(), resolveFlashback)
	},
}

func init() {
	addFlowFlags(titleCmd)
	addFlowFlags(flashbackCmd)
	rootCmd.AddCommand(titleCmd, flashbackCmd)
}

func resolveTitle(root string, cfg *config.Config) (runner, []string, error) {
	p, err := game.ResolveTitle(root, cfg.Title)
	if err != nil {
		return nil, nil, err
	}
	src, dst := filepath.Base(p.Source), filepath.Base(p.Target)
	fmt.Printf("\n目标目录：%s\n", p.Stills)
	fmt.Printf("找到：%s, %s\n", src, dst)

	menu := []string{
		"\n请选择首页背景人物：",
		fmt.Sprintf("  1) 艾玛（把 %s 的背景写入 %s 内部资源）", src, dst),
		fmt.Sprintf("  2) 希罗（从 %s 恢复 %s）", filepath.Base(p.Backup), dst),
	}
	return game.TitlePatcher{Paths: p, Out: os.Stdout}, menu, nil
}

func resolveFlashback(root string, cfg *config.Config) (runner, []string, error) {
	p, err := game.ResolveFlashback(root, cfg.Flashback)
	if err != nil {
		return nil, nil, err
	}
	bundle := filepath.Base(p.Bundle)
	fmt.Printf("\n目标目录：%s\n", p.Dir)
	fmt.Printf("找到：%s\n", bundle)

	rules, err := script.Rules(cfg.Flashback.Find, cfg.Flashback.Replace)
	if err != nil {
		return nil, nil, fmt.Errorf("config: [flashback]: %w", err)
	}

	menu := []string{
		"\n请选择回忆场景人物：",
		fmt.Sprintf("  1) 艾玛（改写 %s 内的脚本表达式）", bundle),
		fmt.Sprintf("  2) 希罗（从 %s 恢复 %s）", filepath.Base(p.Backup), bundle),
	}
	return game.FlashbackPatcher{
		Paths: p,
		Asset: cfg.Flashback.Asset,
		Rules: rules,
		Out:   os.Stdout,
	}, menu, nil
}
