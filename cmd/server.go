package cmd

import (
	"WaveSplit/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the WaveSplit server",
	Long:  `Start the HTTP server that backs the WaveSplit UI shell: project storage, the split workflow and notifications.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
