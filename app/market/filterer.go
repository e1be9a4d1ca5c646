package market

import (
	"regexp"
	"strings"
	"time"
)

// Verdict is the outcome of evaluating a candidate.
type Verdict string

const (
	Accepted                Verdict = "accepted"
	RejectedStale           Verdict = "stale"
	RejectedEmptyBody       Verdict = "empty_body"
	RejectedClosed          Verdict = "closed"
	RejectedMissingTag      Verdict = "missing_tag"
	RejectedUnstructured    Verdict = "unstructured_title"
	RejectedUnknownCurrency Verdict = "unknown_currency"
	RejectedModerator       Verdict = "moderator"
)

var (
	closedStatusPattern = regexp.MustCompile(`(?i)complete|close`)
	offerTitlePattern   = regexp.MustCompile(`\[H\].+\[W\]`)
	currencyPattern     = regexp.MustCompile(`(?i)\b(?:PayPal|BTC|Bitcoin|ETH|Ethereum|LTC|Litecoin)\b`)
)

// Policy is the per-source part of the eligibility rules.
type Policy struct {
	// Strict sources require "[H] ... [W] ..." titles wanting a known currency.
	Strict bool
	// RequiredTag, when set, must prefix every title.
	RequiredTag string
}

// FilterResult is the outcome of filtering a batch of candidates. Results of
// different sources combine with Merge.
type FilterResult struct {
	Accepted []Candidate
	Rejected map[Verdict]int
}

// Merge returns a new result holding the candidates and counts of both.
func (r FilterResult) Merge(other FilterResult) FilterResult {
	merged := FilterResult{
		Accepted: make([]Candidate, 0, len(r.Accepted)+len(other.Accepted)),
		Rejected: make(map[Verdict]int, len(r.Rejected)+len(other.Rejected)),
	}
	merged.Accepted = append(merged.Accepted, r.Accepted...)
	merged.Accepted = append(merged.Accepted, other.Accepted...)
	for verdict, n := range r.Rejected {
		merged.Rejected[verdict] += n
	}
	for verdict, n := range other.Rejected {
		merged.Rejected[verdict] += n
	}
	return merged
}

// RejectedCount returns the total number of rejected candidates.
func (r FilterResult) RejectedCount() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}

// Filterer applies the eligibility rules. Checks are ordered cheapest first
// and stop at the first failure.
type Filterer struct {
	freshness time.Duration
}

func NewFilterer(freshness time.Duration) *Filterer {
	return &Filterer{freshness: freshness}
}

// Run evaluates candidates from a single source.
func (f *Filterer) Run(candidates []Candidate, policy Policy, now time.Time) FilterResult {
	result := FilterResult{
		Accepted: make([]Candidate, 0, len(candidates)),
		Rejected: make(map[Verdict]int),
	}

	for _, candidate := range candidates {
		verdict := f.Check(candidate, policy, now)
		if verdict == Accepted {
			result.Accepted = append(result.Accepted, candidate)
		} else {
			result.Rejected[verdict]++
		}
	}

	return result
}

// Check evaluates one candidate against every rule except moderator
// exclusion, which needs the whole cycle's moderator set.
func (f *Filterer) Check(candidate Candidate, policy Policy, now time.Time) Verdict {
	if !candidate.CreatedAt.After(now.Add(-f.freshness)) {
		return RejectedStale
	}

	if strings.TrimSpace(candidate.Body) == "" {
		return RejectedEmptyBody
	}

	if candidate.Status != "" && closedStatusPattern.MatchString(candidate.Status) {
		return RejectedClosed
	}

	if policy.RequiredTag != "" && !strings.HasPrefix(strings.TrimSpace(candidate.Title), policy.RequiredTag) {
		return RejectedMissingTag
	}

	if policy.Strict {
		if !offerTitlePattern.MatchString(candidate.Title) {
			return RejectedUnstructured
		}
		if !currencyPattern.MatchString(WantedPart(candidate.Title)) {
			return RejectedUnknownCurrency
		}
	}

	return Accepted
}

// ExcludeModerators drops candidates authored by a member of mods.
func ExcludeModerators(result FilterResult, mods ModeratorSet) FilterResult {
	out := FilterResult{
		Accepted: make([]Candidate, 0, len(result.Accepted)),
		Rejected: make(map[Verdict]int, len(result.Rejected)+1),
	}
	for verdict, n := range result.Rejected {
		out.Rejected[verdict] = n
	}

	for _, candidate := range result.Accepted {
		if mods.Contains(candidate.Author) {
			out.Rejected[RejectedModerator]++
			continue
		}
		out.Accepted = append(out.Accepted, candidate)
	}

	return out
}

// WantedPart returns the text following the first "[W]" tag of a title.
func WantedPart(title string) string {
	_, want, found := strings.Cut(title, "[W]")
	if !found {
		return ""
	}
	return want
}
