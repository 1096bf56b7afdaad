package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RailyW/manosaba-index-bg-replace/internal/assets"
)

var inspectTypes bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <bundle>",
	Short: "列出资源包内容 / list the nodes and objects of a bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := assets.Load(args[0])
		if err != nil {
			return err
		}
		b := env.Bundle
		fmt.Printf("%s  format %d  unity %s  blocks info %v\n", b.Signature, b.FormatVersion, b.UnityRevision, b.Compression())
		for _, n := range b.Nodes {
			kind := "resource"
			if n.IsSerializedFile() {
				kind = "serialized"
			}
			fmt.Printf("  %-40s %10d  %s\n", n.Path, len(n.Data()), kind)
		}

		for _, f := range env.Files {
			fmt.Printf("\n%s: version %d, unity %s, %d objects\n", f.Name, f.Version, f.UnityVersion, len(f.Objects))
			for _, o := range f.Objects {
				fmt.Printf("  %20d  %-16s %-32q %8d\n", o.PathID, assets.ClassName(o.ClassID), f.ObjectName(o), o.ByteSize)
			}
			if !inspectTypes {
				continue
			}
			for i, t := range f.Types {
				if t.Tree == nil {
					continue
				}
				fmt.Printf("\ntype %d (%s):\n", i, assets.ClassName(t.ClassID))
				t.Tree.Dump(os.Stdout)
			}
			for _, t := range f.RefTypes {
				if t.Tree == nil {
					continue
				}
				fmt.Printf("\nreference type %s.%s (%s):\n", t.Namespace, t.ClassName, t.Assembly)
				t.Tree.Dump(os.Stdout)
			}
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectTypes, "types", false, "同时打印类型树 / also print type trees")
	rootCmd.AddCommand(inspectCmd)
}
