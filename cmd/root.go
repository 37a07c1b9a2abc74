/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recipeapi",
	Short: "Recipe management API server",
	Long: `recipeapi serves the recipe REST API and its maintenance tasks:

	recipeapi server
	recipeapi migrate up
	recipeapi createsuperuser --email admin@example.com --password secret
	recipeapi events listen --channel recipe.created
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
