package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civimetrics/plenario/pkg/plenario/config"
	"github.com/civimetrics/plenario/pkg/plenario/taxonomy"
)

// taxonomyCmd represents the taxonomy command
var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy [file]",
	Short: "Validate a taxonomy definition file",
	Long: `Taxonomy compiles a Client|Theme|Keywords definition file and reports
what it found. A malformed line fails with its line number.

With no argument the taxonomy path from the config file is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTaxonomy,
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.Taxonomy
	}

	definition, err := config.LoadTaxonomy(path)
	if err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}
	idx, patterns, err := taxonomy.Compile(definition)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d patterns, %d clients\n", path, len(patterns), len(idx.Clients()))
	for _, client := range idx.Clients() {
		themes := idx.Themes(client)
		keywords := 0
		for _, theme := range themes {
			keywords += len(idx.Keywords(client, theme))
		}
		fmt.Printf("  %-24s %d themes, %d keywords\n", client, len(themes), keywords)
	}
	return nil
}
