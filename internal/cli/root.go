// Package cli implements the chilltutor CLI commands.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "chilltutor",
	Short: "Conversational GCSE revision tutor",
	Long:  "A plan-and-execute tutoring agent that quizzes students on GCSE flashcards over Telegram.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Path to the JSON config file")
}
