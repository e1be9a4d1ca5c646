package market

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, category string, promoted bool) Record {
	return Record{
		ID:       id,
		Approved: true,
		Promoted: promoted,
		Payload:  Payload{Title: "Listing " + id, Category: category},
	}
}

func TestComposeDigest_PromotedFirst(t *testing.T) {
	records := []Record{
		record("r1", "Electronics", true),
		record("r2", "Electronics", false),
		record("r3", "Electronics", true),
	}

	for seed := uint64(0); seed < 50; seed++ {
		sections := ComposeDigest(records, rand.New(rand.NewPCG(seed, seed+1)))

		require.Len(t, sections, 1)
		ordered := sections[0].Records
		require.Len(t, ordered, 3)
		assert.True(t, ordered[0].Promoted, "seed %d", seed)
		assert.True(t, ordered[1].Promoted, "seed %d", seed)
		assert.Equal(t, "r2", ordered[2].ID, "seed %d", seed)
	}
}

func TestComposeDigest_ShufflesWithinTier(t *testing.T) {
	records := []Record{
		record("a", "Games & Virtual Items", false),
		record("b", "Games & Virtual Items", false),
		record("c", "Games & Virtual Items", false),
	}

	seen := make(map[string]bool)
	for seed := uint64(0); seed < 100; seed++ {
		sections := ComposeDigest(records, rand.New(rand.NewPCG(seed, 7)))
		ids := make([]string, 0, 3)
		for _, r := range sections[0].Records {
			ids = append(ids, r.ID)
		}
		seen[strings.Join(ids, ",")] = true
	}

	assert.Greater(t, len(seen), 1, "order should vary between cycles")
}

func TestComposeDigest_GroupsByCategory(t *testing.T) {
	records := []Record{
		record("1", "Electronics", false),
		record("2", "Vouchers & Gift Cards", false),
		record("3", "Electronics", false),
		record("4", "", false),
	}

	sections := ComposeDigest(records, rand.New(rand.NewPCG(1, 2)))

	counts := make(map[string]int)
	for _, section := range sections {
		counts[section.Category] = len(section.Records)
	}
	assert.Equal(t, map[string]int{
		"Electronics":           2,
		"Vouchers & Gift Cards": 1,
		UnmappedCategory:        1,
	}, counts)
}

func TestComposeDigest_SameSeedSameOrder(t *testing.T) {
	records := []Record{
		record("1", "A", false),
		record("2", "B", true),
		record("3", "C", false),
		record("4", "A", false),
	}

	first := ComposeDigest(records, rand.New(rand.NewPCG(42, 42)))
	second := ComposeDigest(records, rand.New(rand.NewPCG(42, 42)))

	assert.Equal(t, first, second)
}

func TestRenderDigest(t *testing.T) {
	sections := []Section{
		{Category: "Electronics", Records: []Record{
			record("p1", "Electronics", true),
			record("n1", "Electronics", false),
		}},
		{Category: "Other", Records: []Record{
			record("n2", "", false),
		}},
	}

	expected := "- **Electronics**\n" +
		"  - ⭐ [Listing p1](/r/xyMarket/comments/p1)\n" +
		"  - [Listing n1](/r/xyMarket/comments/n1)\n" +
		"- **Other**\n" +
		"  - [Listing n2](/r/xyMarket/comments/n2)"

	assert.Equal(t, expected, RenderDigest(sections, "xyMarket"))
}

func TestRenderDigest_Empty(t *testing.T) {
	assert.Equal(t, emptyDigestText, RenderDigest(nil, "xyMarket"))
}
