package main

import (
	"github.com/treadwise/agent/cmd/treadwise/runtime"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent in the terminal",
	Long:  `Runs one conversation in the terminal. Leads and unanswered questions are written to the same logs the daemon uses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeWithRuntime(cmd, func(r *runtime.RuntimeComponents) error {
			return r.Run()
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", runtime.DefaultSessionID, "Conversation id for this terminal")
}
