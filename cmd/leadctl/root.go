package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"partner-portal/internal/config"
	"partner-portal/internal/leads"
	"partner-portal/internal/sheets"
	"partner-portal/internal/transformer"
)

const (
	defaultLeadsTab = "Bayteca_leads_2026"
	defaultDupesTab = "B2B Copy"
)

// app carries what every subcommand needs once the persistent flags are parsed.
type app struct {
	logger   *logrus.Logger
	location *time.Location
	service  *leads.Service
	source   sheets.Source
	tabs     []string
	partner  string
	now      func() time.Time
}

func newRootCmd(logger *logrus.Logger) *cobra.Command {
	a := &app{logger: logger, now: time.Now}

	root := &cobra.Command{
		Use:   "leadctl",
		Short: "Run the partner lead pipeline from the command line",
		Long: `Reads the leads and B2B copy tabs, normalizes them and prints the same JSON
payloads the API serves.

Sources, in order of precedence:
  --seed file.json   tab name -> rows, loaded in memory
  --workbook x.xlsx  local workbook
  environment        the API configuration (Google Sheets or XLSX_WORKBOOK_PATH)

Examples:
  leadctl metrics --workbook export.xlsx
  leadctl leads --partner "Acme Homes" --seed fixtures.json
  leadctl export --out snapshot.xlsx`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.String("partner", "", "only keep leads of this organization")
	f.String("workbook", "", "read tabs from a local .xlsx workbook")
	f.String("seed", "", "read tabs from a JSON file mapping tab names to rows")
	f.String("leads-tab", defaultLeadsTab, "leads tab name (workbook and seed sources)")
	f.String("dupes-tab", defaultDupesTab, "duplicate tracking tab name (workbook and seed sources)")
	f.String("timezone", "UTC", "timezone for day and week buckets (workbook and seed sources)")
	f.Bool("verbose", false, "debug logging")

	root.AddCommand(
		newMetricsCmd(a),
		newStagesCmd(a),
		newDuplicatesCmd(a),
		newLeadsCmd(a),
		newQualityCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if verbose, _ := flags.GetBool("verbose"); verbose {
		a.logger.SetLevel(logrus.DebugLevel)
	}
	a.partner, _ = flags.GetString("partner")

	seed, _ := flags.GetString("seed")
	workbook, _ := flags.GetString("workbook")
	leadsTab, _ := flags.GetString("leads-tab")
	dupesTab, _ := flags.GetString("dupes-tab")
	tz, _ := flags.GetString("timezone")

	var source sheets.Source
	switch {
	case seed != "":
		memory, err := loadSeed(seed)
		if err != nil {
			return err
		}
		source = memory
	case workbook != "":
		client, err := sheets.NewWorkbookClient(workbook, a.logger)
		if err != nil {
			return err
		}
		source = client
	default:
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		source, err = configuredSource(cmd.Context(), cfg, a.logger)
		if err != nil {
			return err
		}
		leadsTab, dupesTab, tz = cfg.LeadsTab, cfg.DupesTab, cfg.Timezone
	}

	location, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	a.location = location
	a.source = source
	a.tabs = []string{leadsTab, dupesTab}
	a.service = leads.NewService(source, transformer.New(location), leadsTab, dupesTab, a.logger)
	return nil
}

func configuredSource(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (sheets.Source, error) {
	if cfg.SheetsBackend == config.BackendXLSX {
		return sheets.NewWorkbookClient(cfg.WorkbookPath, logger)
	}
	return sheets.NewGoogleClient(ctx, sheets.GoogleConfig{
		SpreadsheetID:       cfg.SpreadsheetID,
		DefaultTab:          cfg.DefaultTab,
		ServiceAccountEmail: cfg.ServiceAccountEmail,
		PrivateKey:          cfg.PrivateKey,
		PrivateKeyB64:       cfg.PrivateKeyB64,
		Timeout:             cfg.HTTPTimeout,
	}, logger)
}

func loadSeed(path string) (*sheets.MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var tabs map[string][][]string
	if err := json.Unmarshal(data, &tabs); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	source := sheets.NewMemorySource()
	for tab, rows := range tabs {
		source.SetRows(tab, rows)
	}
	return source, nil
}

// dataset loads both tabs and applies --partner.
func (a *app) dataset(ctx context.Context, now time.Time) (leads.Dataset, error) {
	ds, err := a.service.Load(ctx, now)
	if err != nil {
		return leads.Dataset{}, err
	}
	return ds.ForPartner(a.partner), nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
