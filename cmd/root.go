package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roommeet",
	Short: "RoomMeet coordinates audio meetings: participants, roles, media state and realtime events.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runApp(); err != nil {
			os.Exit(1)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
