package market

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
)

const (
	// UnmappedCategory groups records whose source carries no category.
	UnmappedCategory = "Other"
	promotedMarker   = "⭐ "
	emptyDigestText  = "_No active listings right now. Check back soon!_"
)

// Section is one category of the digest with its records in display order.
type Section struct {
	Category string
	Records  []Record
}

// ComposeDigest groups records by category and orders them for display:
// categories in random order, and inside each category promoted records
// first with a fresh random order inside each tier.
func ComposeDigest(records []Record, rng *rand.Rand) []Section {
	grouped := make(map[string][]Record)
	for _, record := range records {
		category := cmp.Or(record.Payload.Category, UnmappedCategory)
		grouped[category] = append(grouped[category], record)
	}

	categories := make([]string, 0, len(grouped))
	for category := range grouped {
		categories = append(categories, category)
	}
	// Sorted first so that the shuffle alone decides the order.
	slices.Sort(categories)
	rng.Shuffle(len(categories), func(i, j int) {
		categories[i], categories[j] = categories[j], categories[i]
	})

	sections := make([]Section, 0, len(categories))
	for _, category := range categories {
		sections = append(sections, Section{
			Category: category,
			Records:  orderSection(grouped[category], rng),
		})
	}

	return sections
}

type rankedRecord struct {
	record Record
	key    uint64
}

// orderSection sorts by promotion tier, then by a random key drawn once per
// record.
func orderSection(records []Record, rng *rand.Rand) []Record {
	ranked := make([]rankedRecord, len(records))
	for i, record := range records {
		ranked[i] = rankedRecord{record: record, key: rng.Uint64()}
	}

	slices.SortStableFunc(ranked, func(a, b rankedRecord) int {
		if a.record.Promoted != b.record.Promoted {
			if a.record.Promoted {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.key, b.key)
	})

	ordered := make([]Record, len(ranked))
	for i, r := range ranked {
		ordered[i] = r.record
	}
	return ordered
}

// RenderDigest renders sections as a nested markdown list linking every
// record to its thread in community.
func RenderDigest(sections []Section, community string) string {
	if len(sections) == 0 {
		return emptyDigestText
	}

	var b strings.Builder
	for i, section := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- **%s**", section.Category)
		for _, record := range section.Records {
			b.WriteString("\n  - ")
			if record.Promoted {
				b.WriteString(promotedMarker)
			}
			fmt.Fprintf(&b, "[%s](%s)", record.Payload.Title, ThreadPath(community, record.ID))
		}
	}

	return b.String()
}

// ThreadPath returns the community-relative path of a thread.
func ThreadPath(community, id string) string {
	return "/r/" + community + "/comments/" + id
}
