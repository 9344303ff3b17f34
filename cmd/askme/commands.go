package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nmoreau/askme/internal/config"
	"github.com/nmoreau/askme/internal/knowledge"
	"github.com/nmoreau/askme/internal/retrieval"
)

// --- kb ---

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect and manage the knowledge base",
}

var kbValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the knowledge base and check its integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		source, _ := cmd.Flags().GetString("source")
		if source == "" {
			source = cfg.Knowledge.Source
		}

		base, err := knowledge.Load(source, cfg.Knowledge.MinEntries)
		if err != nil {
			printError("knowledge base invalid: %v", err)
			return err
		}

		printSuccess("Knowledge base is valid")
		printStatus("Entries", "%d", len(base.Entries))
		printStatus("Topics", "%s", strings.Join(base.Topics(), ", "))
		return nil
	},
}

var kbSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Score knowledge base entries against a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		lang, _ := cmd.Flags().GetString("lang")
		limit, _ := cmd.Flags().GetInt("limit")

		base, err := knowledge.Load(cfg.Knowledge.Source, cfg.Knowledge.MinEntries)
		if err != nil {
			return fmt.Errorf("loading knowledge base: %w", err)
		}

		pcfg := promptDefaults(cfg)
		if lang != "" {
			pcfg.Language = lang
		}
		if limit > 0 {
			pcfg.MaxContextEntries = limit
		}

		results := retrieval.New(base).FindRelevant(query, pcfg)
		if len(results) == 0 {
			fmt.Println("No matching entries.")
			return nil
		}

		for i, r := range results {
			fmt.Printf("\n%s [score: %.2f]\n", colorize(colorBold, fmt.Sprintf("%d. %s", i+1, r.Entry.ID)), r.Score)
			fmt.Printf("  Q: %s\n", r.Entry.QuestionIn(pcfg.Language))
			fmt.Printf("  A: %s\n", r.Entry.AnswerIn(pcfg.Language))
		}
		return nil
	},
}

var kbImportCmd = &cobra.Command{
	Use:   "import <entries.json> <entries.db>",
	Short: "Import JSON entries into a SQLite knowledge base",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonPath, dbPath := args[0], args[1]

		base, err := knowledge.LoadFile(jsonPath)
		if err != nil {
			return fmt.Errorf("loading %s: %w", jsonPath, err)
		}

		store, err := knowledge.OpenStore(dbPath)
		if err != nil {
			return fmt.Errorf("opening %s: %w", dbPath, err)
		}
		defer store.Close()

		if err := store.ImportEntries(base.Entries); err != nil {
			return fmt.Errorf("importing entries: %w", err)
		}

		printSuccess("Imported %d entries into %s", len(base.Entries), dbPath)
		return nil
	},
}

func init() {
	kbValidateCmd.Flags().String("source", "", "override the configured knowledge source")
	kbSearchCmd.Flags().String("lang", "", "language for questions and answers (en or fr)")
	kbSearchCmd.Flags().Int("limit", 0, "maximum number of results")
	kbCmd.AddCommand(kbValidateCmd)
	kbCmd.AddCommand(kbSearchCmd)
	kbCmd.AddCommand(kbImportCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			if strings.Contains(err.Error(), "unknown config key") {
				printWarning("Valid keys: %s", strings.Join(config.ValidKeys(), ", "))
			}
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
