package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/civimetrics/plenario/internal/provider"
	"github.com/civimetrics/plenario/internal/provider/camara"
	"github.com/civimetrics/plenario/internal/provider/senado"
	"github.com/civimetrics/plenario/pkg/plenario"
	"github.com/civimetrics/plenario/pkg/plenario/config"
	"github.com/civimetrics/plenario/pkg/plenario/store/sqlitegrid"
	"github.com/civimetrics/plenario/pkg/plenario/taxonomy"
)

var runTimeout time.Duration

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full monitoring cycle",
	Long: `Run fetches the day's newly filed bills from both chambers, matches
them against the taxonomy, merges the hits into the general per-chamber
tables and routes them into per-client tables.

Example:
  plenario run --config plenario.yaml
  plenario run --timeout 30m`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().DurationVar(&runTimeout, "timeout", 20*time.Minute, "overall cycle timeout")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	definition, err := config.LoadTaxonomy(cfg.Taxonomy)
	if err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}
	idx, patterns, err := taxonomy.Compile(definition)
	if err != nil {
		return fmt.Errorf("compile taxonomy: %w", err)
	}
	matcher := taxonomy.NewMatcher(patterns)

	st, err := sqlitegrid.Open(ctx, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	logger := log.New(os.Stderr, "plenario: ", log.LstdFlags)
	httpc := provider.NewHTTPClient(
		cfg.Providers.RatePerSecond,
		cfg.Providers.Burst,
		time.Duration(cfg.Providers.TimeoutSeconds)*time.Second,
	)

	insert, err := config.ParsePosition(cfg.Targets.Insert)
	if err != nil {
		return err
	}
	clientInsert, err := config.ParsePosition(cfg.Targets.ClientInsert)
	if err != nil {
		return err
	}

	mon := plenario.New(plenario.Options{
		Store:        st,
		Index:        idx,
		Matcher:      matcher,
		Camara:       camara.New(cfg.Providers.CamaraBaseURL, httpc, logger),
		Senado:       senado.New(cfg.Providers.SenadoBaseURL, httpc, logger),
		SenadoTarget: cfg.Targets.Senado,
		CamaraTarget: cfg.Targets.Camara,
		Insert:       insert,
		ClientInsert: clientInsert,
		Logger:       logger,
	})

	if err := mon.EnsureTargets(ctx); err != nil {
		return err
	}

	report, err := mon.Run(ctx)
	if report != nil {
		printReport(report)
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

func printReport(r *plenario.RunReport) {
	fmt.Printf("run %s (%s)\n", r.ID, r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	fmt.Printf("fetched: senado=%d camara=%d\n", r.Senado, r.Camara)
	for _, t := range r.General {
		if t.Err != nil {
			fmt.Printf("  %-24s error: %v\n", t.Target, t.Err)
			continue
		}
		fmt.Printf("  %-24s considered=%d skipped=%d written=%d\n",
			t.Target, t.Stats.Considered, t.Stats.Skipped, t.Stats.Written)
	}
	for name, st := range r.Clients {
		fmt.Printf("  client %-17s considered=%d skipped=%d written=%d\n",
			name, st.Considered, st.Skipped, st.Written)
	}
}
