package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/civimetrics/plenario/internal/align"
	"github.com/civimetrics/plenario/pkg/plenario/config"
	"github.com/civimetrics/plenario/pkg/plenario/store/sqlitegrid"
)

var alignTimeout time.Duration

// alignCmd represents the align command
var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Label tracked bills against each client's mission",
	Long: `Align walks every client table and asks a language model whether each
bill's summary aligns with the client organization's mission, writing an
"Alinhamento" label and a short "Justificativa" back to the table.

Rows that already carry a label are skipped, so the pass is safe to rerun.

The OpenAI API key is read from PLENARIO_OPENAI_API_KEY or OPENAI_API_KEY.

Example:
  plenario align --config plenario.yaml`,
	RunE: runAlign,
}

func init() {
	rootCmd.AddCommand(alignCmd)

	alignCmd.Flags().DurationVar(&alignTimeout, "timeout", time.Hour, "overall pass timeout")
}

func runAlign(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), alignTimeout)
	defer cancel()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Align.Provider == "" {
		return fmt.Errorf("align.provider not set in config")
	}
	if cfg.Align.Provider != "openai" {
		return fmt.Errorf("unsupported align provider %q", cfg.Align.Provider)
	}

	apiKey := viper.GetString("openai_api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	classifier, err := align.NewOpenAIClassifier(apiKey, cfg.Align.Model)
	if err != nil {
		return err
	}

	st, err := sqlitegrid.Open(ctx, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	orgs := make(map[string]align.Org, len(cfg.Orgs))
	for client, org := range cfg.Orgs {
		name := org.Name
		if name == "" {
			name = client
		}
		orgs[client] = align.Org{Name: name, Mission: org.Mission}
	}

	proc := &align.Processor{
		Store:      st,
		Classifier: classifier,
		Orgs:       orgs,
		Skip:       cfg.Align.SkipTargets,
		BatchSize:  cfg.Align.BatchSize,
		Sleep:      time.Duration(cfg.Align.SleepSec * float64(time.Second)),
		Logger:     log.New(os.Stderr, "plenario: ", log.LstdFlags),
	}

	stats, err := proc.ProcessAll(ctx)
	for name, st := range stats {
		fmt.Printf("  %-24s rows=%d labeled=%d skipped=%d\n", name, st.Rows, st.Labeled, st.Skipped)
	}
	if err != nil {
		return fmt.Errorf("align pass finished with errors: %w", err)
	}
	return nil
}
