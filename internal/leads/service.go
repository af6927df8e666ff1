package leads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"partner-portal/internal/mapping"
	"partner-portal/internal/models"
	"partner-portal/internal/sheets"
	"partner-portal/internal/transformer"
)

// Dataset is one fetch of the portal's sheets. B2BLeads carry their own duplicate flags.
type Dataset struct {
	Leads    []models.NormalizedLead
	B2BLeads []models.NormalizedLead
}

func (d Dataset) ForPartner(partner string) Dataset {
	return Dataset{
		Leads:    FilterByPartner(d.Leads, partner),
		B2BLeads: FilterByPartner(d.B2BLeads, partner),
	}
}

type Service struct {
	source      sheets.Source
	transformer *transformer.Transformer
	leadsTab    string
	dupesTab    string
	logger      *logrus.Logger
}

func NewService(source sheets.Source, t *transformer.Transformer, leadsTab, dupesTab string, logger *logrus.Logger) *Service {
	return &Service{
		source:      source,
		transformer: t,
		leadsTab:    leadsTab,
		dupesTab:    dupesTab,
		logger:      logger,
	}
}

// Load reads the leads tab and the duplicate tracking tab concurrently and normalizes both
// relative to now. Any read failure fails the whole load.
func (s *Service) Load(ctx context.Context, now time.Time) (Dataset, error) {
	var leadRows, dupeRows [][]string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.source.ReadRows(gctx, s.leadsTab)
		if err != nil {
			return fmt.Errorf("read leads tab: %w", err)
		}
		leadRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.source.ReadRows(gctx, s.dupesTab)
		if err != nil {
			return fmt.Errorf("read duplicates tab: %w", err)
		}
		dupeRows = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dataset{}, err
	}

	leadRaws := mapping.MapRows(leadRows, mapping.LeadSchema)
	dupeRaws := mapping.MapRows(dupeRows, mapping.LeadSchema)

	leads := s.transformer.NormalizeLeads(s.leadsTab, leadRaws, now)
	transformer.BuildFlagIndex(dupeRaws).Apply(leads)
	b2b := s.transformer.NormalizeFlaggedLeads(s.dupesTab, dupeRaws, now)

	s.logger.WithFields(logrus.Fields{
		"leads":     len(leads),
		"b2b_leads": len(b2b),
	}).Debug("Loaded lead dataset")

	return Dataset{Leads: leads, B2BLeads: b2b}, nil
}

// Probe checks that the leads tab can be read.
func (s *Service) Probe(ctx context.Context) error {
	_, err := s.source.ReadRows(ctx, s.leadsTab)
	return err
}

// NormalizeOrg trims, collapses inner whitespace and case-folds an organization name.
func NormalizeOrg(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// FilterByPartner keeps the leads whose orgName matches partner. An empty partner keeps all.
func FilterByPartner(leads []models.NormalizedLead, partner string) []models.NormalizedLead {
	want := NormalizeOrg(partner)
	if want == "" {
		return leads
	}

	filtered := make([]models.NormalizedLead, 0)
	for _, lead := range leads {
		if NormalizeOrg(lead.OrgName) == want {
			filtered = append(filtered, lead)
		}
	}
	return filtered
}
