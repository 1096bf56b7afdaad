package main

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/RailyW/manosaba-index-bg-replace/internal/assets"
	"github.com/RailyW/manosaba-index-bg-replace/internal/texture"
)

var exportName string

var exportCmd = &cobra.Command{
	Use:   "export <bundle> <out.png>",
	Short: "导出 Texture2D 为图片 / save a Texture2D as PNG or JPEG",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := assets.Load(args[0])
		if err != nil {
			return err
		}
		for _, ref := range env.Objects(assets.ClassTexture2D) {
			tree, err := ref.Read()
			if err != nil {
				glog.Warningf("export: skip Texture2D %d: %v", ref.Object.PathID, err)
				continue
			}
			info, err := texture.ReadInfo(tree)
			if err != nil {
				return err
			}
			if exportName != "" && info.Name != exportName {
				continue
			}
			data, err := texture.ImageData(tree, env)
			if err != nil {
				return err
			}
			img, err := texture.Decode(info.Format, info.Width, info.Height, data)
			if err != nil {
				return err
			}
			if err := texture.Export(args[1], img); err != nil {
				return err
			}
			fmt.Printf("已导出 %s（%dx%d %v）-> %s\n", info.Name, info.Width, info.Height, info.Format, args[1])
			return nil
		}
		if exportName != "" {
			return fmt.Errorf("未找到名为 %s 的 Texture2D：%s", exportName, args[0])
		}
		return fmt.Errorf("未找到 Texture2D：%s", args[0])
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportName, "name", "", "按 m_Name 选择纹理 / pick the texture by m_Name")
	rootCmd.AddCommand(exportCmd)
}
