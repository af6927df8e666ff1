// Package duplicates finds leads that refer to the same contact.
package duplicates

import (
	"fmt"

	"partner-portal/internal/models"
)

// OtherPartnerPlaceholder is the partner shown for a flagged cross-partner duplicate
// whose counterpart row is not available.
const OtherPartnerPlaceholder = "Otro partner"

// buckets groups leads by key, remembering first-seen key order.
type buckets struct {
	keys    []string
	members map[string][]models.NormalizedLead
}

func newBuckets() *buckets {
	return &buckets{members: make(map[string][]models.NormalizedLead)}
}

func (b *buckets) add(key string, lead models.NormalizedLead) {
	if _, ok := b.members[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.members[key] = append(b.members[key], lead)
}

type detector struct {
	duplicates []models.LeadDuplicate
	seenPairs  map[string]bool
}

// Detect returns email and phone duplicate pairs, then one flag duplicate per set flag
// for every flagged lead that is not already the original side of a live pair.
// The output depends only on the input order.
func Detect(leads []models.NormalizedLead) []models.LeadDuplicate {
	byEmail := newBuckets()
	byPhone := newBuckets()
	for _, lead := range leads {
		if lead.EmailNorm != "" {
			byEmail.add(lead.EmailNorm, lead)
		}
		if lead.PhoneNorm != "" {
			byPhone.add(lead.PhoneNorm, lead)
		}
	}

	d := &detector{seenPairs: make(map[string]bool)}
	d.pairs(byEmail, models.RuleEmail)
	d.pairs(byPhone, models.RulePhone)
	d.flags(leads)
	return d.duplicates
}

func (d *detector) pairs(b *buckets, rule models.DuplicateRule) {
	for _, key := range b.keys {
		items := b.members[key]
		if len(items) < 2 {
			continue
		}
		for i := 0; i < len(items); i++ {
			for j := i + 1; j < len(items); j++ {
				original, matched := items[i], items[j]
				pairKey := PairKey(original.ID, matched.ID, rule)
				if d.seenPairs[pairKey] {
					continue
				}
				d.seenPairs[pairKey] = true

				d.duplicates = append(d.duplicates, models.LeadDuplicate{
					ID:            pairKey,
					LeadID:        original.ID,
					MatchedLeadID: matched.ID,
					Rule:          rule,
					Type:          Classify(original, matched),
					CreatedAt:     original.CreatedAt,
					Original:      original,
					Matched:       matched,
				})
			}
		}
	}
}

func (d *detector) flags(leads []models.NormalizedLead) {
	originals := make(map[string]bool, len(d.duplicates))
	for _, dup := range d.duplicates {
		originals[dup.LeadID] = true
	}

	for index, lead := range leads {
		if !lead.DuplicateSame && !lead.DuplicateOther {
			continue
		}
		if originals[lead.ID] {
			continue
		}

		if lead.DuplicateSame {
			placeholder := models.NormalizedLead{
				ID:        fmt.Sprintf("%s-flag-same-%d", lead.ID, index),
				CreatedAt: lead.CreatedAt,
				Partner:   lead.Partner,
			}
			d.duplicates = append(d.duplicates, flagDuplicate(lead, placeholder, "same", models.SamePartner))
		}

		if lead.DuplicateOther {
			placeholder := models.NormalizedLead{
				ID:        fmt.Sprintf("%s-flag-other-%d", lead.ID, index),
				CreatedAt: lead.CreatedAt,
			}
			if lead.Partner != "" {
				placeholder.Partner = OtherPartnerPlaceholder
			}
			d.duplicates = append(d.duplicates, flagDuplicate(lead, placeholder, "other", models.OtherPartners))
		}
	}
}

func flagDuplicate(lead, placeholder models.NormalizedLead, suffix string, typ models.DuplicateType) models.LeadDuplicate {
	return models.LeadDuplicate{
		ID:            fmt.Sprintf("%s-flag-%s", lead.ID, suffix),
		LeadID:        lead.ID,
		MatchedLeadID: placeholder.ID,
		Rule:          models.RuleFlag,
		Type:          typ,
		CreatedAt:     lead.CreatedAt,
		Original:      lead,
		Matched:       placeholder,
	}
}

// PairKey identifies an unordered pair under one rule.
func PairKey(a, b string, rule models.DuplicateRule) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s|%s|%s", a, b, rule)
}

// Classify is other_partners only when both partners are known and differ.
func Classify(a, b models.NormalizedLead) models.DuplicateType {
	if a.Partner != "" && b.Partner != "" && a.Partner != b.Partner {
		return models.OtherPartners
	}
	return models.SamePartner
}

// TypesByLead resolves the duplicate type of each lead id appearing on either side of a pair.
// Later pairs win.
func TypesByLead(dups []models.LeadDuplicate) map[string]models.DuplicateType {
	types := make(map[string]models.DuplicateType, len(dups)*2)
	for _, dup := range dups {
		types[dup.LeadID] = dup.Type
		types[dup.MatchedLeadID] = dup.Type
	}
	return types
}

// FromFlags lists the flagged rows of the B2B copy tab as flag duplicates.
func FromFlags(leads []models.NormalizedLead) []models.LeadDuplicate {
	dups := []models.LeadDuplicate{}
	for _, lead := range leads {
		if !lead.DuplicateSame && !lead.DuplicateOther {
			continue
		}

		typ := models.SamePartner
		partner := lead.OrgName
		if lead.DuplicateOther {
			typ = models.OtherPartners
			partner = OtherPartnerPlaceholder
		}

		original := lead
		original.Partner = lead.OrgName
		dups = append(dups, models.LeadDuplicate{
			ID:            lead.ID,
			LeadID:        lead.ID,
			MatchedLeadID: lead.ID + "-flag",
			Rule:          models.RuleFlag,
			Type:          typ,
			CreatedAt:     lead.CreatedAt,
			Original:      original,
			Matched: models.NormalizedLead{
				ID:        lead.ID + "-flag",
				EmailRaw:  lead.EmailRaw,
				Partner:   partner,
				CreatedAt: lead.CreatedAt,
			},
		})
	}
	return dups
}
