package duplicates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-portal/internal/mapping"
	"partner-portal/internal/models"
	"partner-portal/internal/transformer"
)

var refNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func lead(id, email, phone, partner string) models.NormalizedLead {
	return models.NormalizedLead{ID: id, EmailNorm: email, PhoneNorm: phone, Partner: partner, CreatedAt: refNow}
}

func TestDetectSheetRowsWithSharedEmailAcrossPartners(t *testing.T) {
	rows := [][]string{
		{"Email", "Phone", "Person Name", "Stage Name", "Partner"},
		{"a@x.com", "600000001", "Ana Lopez", "Lead", "P1"},
		{"A@X.com ", "600000002", "Ana L.", "Qualifying", "P2"},
	}
	raws := mapping.MapRows(rows, mapping.LeadSchema)
	leads := transformer.New(time.UTC).NormalizeLeads("Leads", raws, refNow)

	dups := Detect(leads)

	require.Len(t, dups, 1)
	assert.Equal(t, models.RuleEmail, dups[0].Rule)
	assert.Equal(t, models.OtherPartners, dups[0].Type)
	assert.Equal(t, leads[0].ID, dups[0].LeadID)
	assert.Equal(t, leads[1].ID, dups[0].MatchedLeadID)
}

func TestDetectFullPairwiseWithinBucket(t *testing.T) {
	leads := []models.NormalizedLead{
		lead("a", "same@x.com", "", "P1"),
		lead("b", "same@x.com", "", "P1"),
		lead("c", "same@x.com", "", ""),
	}

	dups := Detect(leads)

	require.Len(t, dups, 3)
	for _, dup := range dups {
		assert.Equal(t, models.SamePartner, dup.Type, "missing partner defaults to same_partner")
	}
}

func TestDetectEmailAndPhoneAreIndependentSignals(t *testing.T) {
	leads := []models.NormalizedLead{
		lead("a", "same@x.com", "600", "P1"),
		lead("b", "same@x.com", "600", "P1"),
	}

	dups := Detect(leads)

	require.Len(t, dups, 2)
	assert.Equal(t, models.RuleEmail, dups[0].Rule)
	assert.Equal(t, models.RulePhone, dups[1].Rule)
}

func TestDetectIsDeterministicAndPairsAreUnique(t *testing.T) {
	leads := []models.NormalizedLead{
		lead("a", "one@x.com", "1", "P1"),
		lead("b", "one@x.com", "2", "P2"),
		lead("c", "two@x.com", "1", ""),
		lead("d", "two@x.com", "2", "P1"),
		lead("e", "one@x.com", "1", "P1"),
		lead("a", "one@x.com", "1", "P1"),
	}

	first := Detect(leads)
	second := Detect(leads)
	assert.Equal(t, first, second)

	seen := make(map[string]bool)
	for _, dup := range first {
		key := PairKey(dup.LeadID, dup.MatchedLeadID, dup.Rule)
		assert.False(t, seen[key], "pair %s reported twice", key)
		seen[key] = true
	}
}

func TestDetectIsSymmetric(t *testing.T) {
	a := lead("a", "same@x.com", "", "P1")
	b := lead("b", "same@x.com", "", "P2")

	forward := Detect([]models.NormalizedLead{a, b})
	backward := Detect([]models.NormalizedLead{b, a})

	require.Len(t, forward, 1)
	require.Len(t, backward, 1)
	assert.Equal(t, forward[0].ID, backward[0].ID)
	assert.Equal(t, forward[0].Type, backward[0].Type)
}

func TestDetectSynthesizesFlagDuplicate(t *testing.T) {
	flagged := lead("f", "lonely@x.com", "", "P1")
	flagged.DuplicateOther = true

	dups := Detect([]models.NormalizedLead{flagged, lead("g", "other@x.com", "", "P1")})

	require.Len(t, dups, 1)
	assert.Equal(t, models.RuleFlag, dups[0].Rule)
	assert.Equal(t, models.OtherPartners, dups[0].Type)
	assert.Equal(t, "f-flag-other", dups[0].ID)
	assert.Equal(t, "f-flag-other-0", dups[0].MatchedLeadID)
	assert.Equal(t, OtherPartnerPlaceholder, dups[0].Matched.Partner)
}

func TestDetectFlagSweepSkipsLeadsAlreadyOriginal(t *testing.T) {
	a := lead("a", "same@x.com", "", "P1")
	a.DuplicateSame = true
	a.DuplicateOther = true
	b := lead("b", "same@x.com", "", "P1")
	b.DuplicateSame = true
	b.DuplicateOther = true

	dups := Detect([]models.NormalizedLead{a, b})

	// a is the original of the live pair; b is only the matched side and gets both flags.
	require.Len(t, dups, 3)
	assert.Equal(t, models.RuleEmail, dups[0].Rule)
	assert.Equal(t, "b-flag-same", dups[1].ID)
	assert.Equal(t, "P1", dups[1].Matched.Partner)
	assert.Equal(t, "b-flag-other", dups[2].ID)
}

func TestDetectEmpty(t *testing.T) {
	assert.Empty(t, Detect(nil))
}

func TestTypesByLead(t *testing.T) {
	dups := []models.LeadDuplicate{
		{LeadID: "a", MatchedLeadID: "b", Type: models.SamePartner},
		{LeadID: "b", MatchedLeadID: "c", Type: models.OtherPartners},
	}
	types := TypesByLead(dups)
	assert.Equal(t, models.SamePartner, types["a"])
	assert.Equal(t, models.OtherPartners, types["b"])
	assert.Equal(t, models.OtherPartners, types["c"])
}

func TestFromFlags(t *testing.T) {
	same := models.NormalizedLead{ID: "s", OrgName: "Acme", DuplicateSame: true}
	other := models.NormalizedLead{ID: "o", OrgName: "Acme", DuplicateOther: true, DuplicateSame: true}
	plain := models.NormalizedLead{ID: "p", OrgName: "Acme"}

	dups := FromFlags([]models.NormalizedLead{same, other, plain})

	require.Len(t, dups, 2)
	assert.Equal(t, models.SamePartner, dups[0].Type)
	assert.Equal(t, "Acme", dups[0].Matched.Partner)
	assert.Equal(t, models.OtherPartners, dups[1].Type)
	assert.Equal(t, OtherPartnerPlaceholder, dups[1].Matched.Partner)
	assert.Equal(t, "o-flag", dups[1].MatchedLeadID)
}
