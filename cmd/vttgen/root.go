package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "vttgen",
		Short:         "将 Whisper verbose_json 转换为 WebVTT/SRT 字幕",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "config/config.yaml", "配置文件路径（仅 --translate 需要）")

	rootCmd.AddCommand(newConvertCommand(&configFlag))
	rootCmd.AddCommand(newTimestampCommand())

	return rootCmd
}
