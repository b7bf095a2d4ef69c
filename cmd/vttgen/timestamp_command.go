package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/z-wentao/scriptsync/pkg/subtitle"
)

func newTimestampCommand() *cobra.Command {
	var srt bool

	cmd := &cobra.Command{
		Use:   "timestamp <seconds>...",
		Short: "将秒数格式化为字幕时间戳",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				seconds, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("无效的秒数 %q: %w", arg, err)
				}
				format := subtitle.FormatTimestamp
				if srt {
					format = subtitle.FormatSRTTimestamp
				}
				ts, err := format(seconds)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ts)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&srt, "srt", false, "使用 SRT 格式（逗号分隔毫秒）")
	return cmd
}
