package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "askme",
	Short: "Profile chat service with a bilingual Q&A knowledge base",
	Long: `askme serves a small chat API that answers visitor questions about
one person's professional profile. Replies are generated by an LLM
provider (Groq, Gemini, or a local Ollama) and grounded in a curated
bilingual knowledge base.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the askme version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("askme version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
