/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "filerelay",
	Short: "Telegram bot that lists channel files and relays them to storage",
	Long: `filerelay is a Telegram bot that browses the files posted in a public
channel by day or extension, hands out download links, and saves files to an
Alist or WebDAV server.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()
}
