package main

import (
	"errors"

	"github.com/spf13/cobra"

	"partner-portal/internal/duplicates"
	"partner-portal/internal/metrics"
	"partner-portal/internal/models"
	"partner-portal/internal/sheets"
	"partner-portal/internal/stages"
	"partner-portal/internal/transformer"
)

func newMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the dashboard metrics payload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := a.now()
			ds, err := a.dataset(cmd.Context(), now)
			if err != nil {
				return err
			}
			payload := metrics.NewCalculator(a.location).Build(ds.Leads, duplicates.Detect(ds.Leads), ds.B2BLeads, now)
			return printJSON(cmd, payload)
		},
	}
}

func newStagesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Print lead counts per canonical stage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.dataset(cmd.Context(), a.now())
			if err != nil {
				return err
			}
			selected := ds.Leads
			if activeOnly, _ := cmd.Flags().GetBool("active-only"); activeOnly {
				selected = make([]models.NormalizedLead, 0, len(ds.Leads))
				for _, lead := range ds.Leads {
					if !metrics.IsLost(lead) {
						selected = append(selected, lead)
					}
				}
			}
			return printJSON(cmd, stages.AggregateLeads(selected).Payload())
		},
	}
	cmd.Flags().Bool("active-only", false, "drop leads with a loss reason")
	return cmd
}

func newDuplicatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Print duplicate pairs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.dataset(cmd.Context(), a.now())
			if err != nil {
				return err
			}
			live, _ := cmd.Flags().GetBool("live")

			dups := duplicates.Detect(ds.Leads)
			if !live && len(ds.B2BLeads) > 0 {
				dups = duplicates.FromFlags(ds.B2BLeads)
			}
			if dups == nil {
				dups = []models.LeadDuplicate{}
			}
			return printJSON(cmd, map[string]interface{}{"duplicates": dups})
		},
	}
	cmd.Flags().Bool("live", false, "always run email/phone detection, even with B2B copy rows")
	return cmd
}

func newLeadsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "leads",
		Short: "Print normalized leads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.dataset(cmd.Context(), a.now())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{"leads": ds.Leads})
		},
	}
}

func newQualityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quality",
		Short: "Print the data quality report of the leads tab",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := a.now()
			ds, err := a.dataset(cmd.Context(), now)
			if err != nil {
				return err
			}
			return printJSON(cmd, transformer.New(a.location).GenerateQualityReport(ds.Leads, now))
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Snapshot the leads and B2B copy tabs into a local workbook",
		Long: `Copies the raw rows of both tabs into an .xlsx file that can be read back
later with --workbook. --partner is ignored: the snapshot keeps every row.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				return errors.New("--out is required")
			}

			tabs := make(map[string][][]string, len(a.tabs))
			for _, tab := range a.tabs {
				rows, err := a.source.ReadRows(cmd.Context(), tab)
				if err != nil {
					return err
				}
				tabs[tab] = rows
			}
			if err := sheets.WriteWorkbook(out, tabs); err != nil {
				return err
			}

			a.logger.WithField("path", out).Info("Workbook written")
			return printJSON(cmd, map[string]interface{}{"path": out, "tabs": a.tabs})
		},
	}
	cmd.Flags().String("out", "", "path of the .xlsx file to write")
	return cmd
}
