package cli

import (
	"github.com/spf13/cobra"
)

var simulateMessage string

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "通过告警通道发送一条测试消息",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), simulateMessage)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateMessage, "message", "", "测试消息内容")
}
