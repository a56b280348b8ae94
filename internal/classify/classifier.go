// Package classify decides whether a candidate directory is worth a
// submission attempt. Three tiers, each invoked only when the prior tier is
// inconclusive, because cost rises tier to tier: free metadata checks, free
// page-text heuristics, then a paid oracle call. Tiers 1-2 resolve the
// overwhelming majority of obvious cases without spending a call.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/kstephens0331/carsub/internal/config"
	"github.com/kstephens0331/carsub/internal/logging"
	"github.com/kstephens0331/carsub/internal/types"
)

// Classifier runs the tiered relevance pipeline.
type Classifier struct {
	cfg    config.ClassifierConfig
	oracle types.Oracle
}

// New creates a classifier. oracle may be nil, in which case tier 3 always
// takes the numeric fallback.
func New(cfg config.ClassifierConfig, oracle types.Oracle) *Classifier {
	if cfg.FallbackDRThreshold == 0 {
		cfg.FallbackDRThreshold = 20
	}
	return &Classifier{cfg: cfg, oracle: oracle}
}

// QuickCheck is tier 1: metadata only, no page load. A nil verdict means
// inconclusive - escalate to tier 2.
func (c *Classifier) QuickCheck(dir types.Directory) *types.RelevanceVerdict {
	if dir.Tier == types.TierNiche {
		return &types.RelevanceVerdict{
			Pass:       true,
			Confidence: 0.95,
			Reason:     "pre-vetted niche directory",
			Method:     types.MethodQuickCheck,
		}
	}

	haystack := strings.ToLower(dir.Name + " " + dir.URL)

	// Allow-list wins over negative keywords: a major directory is relevant
	// even when its URL happens to contain a flagged substring.
	for _, major := range majorDirectories {
		if strings.Contains(haystack, major) {
			return &types.RelevanceVerdict{
				Pass:       true,
				Confidence: 0.99,
				Reason:     fmt.Sprintf("major directory allow-list: %s", major),
				Method:     types.MethodQuickCheck,
			}
		}
	}

	for _, neg := range negativeKeywords {
		if strings.Contains(haystack, neg) {
			return &types.RelevanceVerdict{
				Pass:       false,
				Confidence: 0.8,
				Reason:     fmt.Sprintf("negative keyword in name/url: %s", neg),
				Method:     types.MethodQuickCheck,
			}
		}
	}

	return nil
}

// DeepCheck is tier 2: keyword scoring over the page's text signals. A nil
// verdict means inconclusive - escalate to the oracle.
func (c *Classifier) DeepCheck(dir types.Directory, snapshot *types.PageSnapshot) *types.RelevanceVerdict {
	var pageText, title string
	var categoryOptions []string
	if snapshot != nil {
		pageText = snapshot.PageText
		title = snapshot.Title
		categoryOptions = snapshot.CategoryOptions()
	}
	haystack := strings.ToLower(pageText + " " + dir.URL + " " + title)

	positive := 0
	for _, kw := range positiveKeywords {
		if strings.Contains(haystack, kw) {
			positive++
		}
	}
	negative := 0
	for _, kw := range negativeKeywords {
		if strings.Contains(haystack, kw) {
			negative++
		}
	}

	// A category select whose options match the industry is the strongest
	// free signal a submission there is on-topic.
	for _, opt := range categoryOptions {
		if industryCategoryPattern.MatchString(opt) {
			positive += 3
			break
		}
	}

	logging.ClassifyDebug("deep check %s: positive=%d negative=%d", dir.URL, positive, negative)

	if positive >= 3 && negative == 0 {
		score := 0.5 + 0.1*float64(positive)
		if score > 0.95 {
			score = 0.95
		}
		return &types.RelevanceVerdict{
			Pass:       true,
			Confidence: score,
			Reason:     fmt.Sprintf("keyword signals: %d positive, 0 negative", positive),
			Method:     types.MethodDeepCheck,
		}
	}
	if negative >= 2 && positive < 2 {
		score := 0.5 - 0.15*float64(negative)
		if score < 0.1 {
			score = 0.1
		}
		return &types.RelevanceVerdict{
			Pass:       false,
			Confidence: score,
			Reason:     fmt.Sprintf("keyword signals: %d negative, %d positive", negative, positive),
			Method:     types.MethodDeepCheck,
		}
	}
	return nil
}

// OracleCheck is tier 3: delegate to the external oracle. If the oracle call
// itself fails, a numeric fallback applies - pass iff the directory's DR
// exceeds the configured threshold - so the pipeline never blocks on an
// unreachable oracle.
func (c *Classifier) OracleCheck(ctx context.Context, dir types.Directory, snapshot *types.PageSnapshot, profile types.BusinessProfile) *types.RelevanceVerdict {
	var categoryOptions []string
	if snapshot != nil {
		categoryOptions = snapshot.CategoryOptions()
	}

	if c.oracle != nil {
		answer, err := c.oracle.AssessRelevance(ctx, dir, snapshot, profile, categoryOptions)
		if err == nil && answer != nil {
			reason := answer.Reason
			if answer.IndustryMatch != "" {
				reason = fmt.Sprintf("%s (industry: %s)", reason, answer.IndustryMatch)
			}
			return &types.RelevanceVerdict{
				Pass:       answer.Relevant,
				Confidence: answer.Score,
				Reason:     reason,
				Method:     types.MethodOracle,
			}
		}
		logging.Classify("oracle relevance check failed for %s: %v", dir.URL, err)
	}

	pass := dir.DomainRating > c.cfg.FallbackDRThreshold
	return &types.RelevanceVerdict{
		Pass:       pass,
		Confidence: 0.5,
		Reason:     fmt.Sprintf("oracle unavailable, DR fallback (DR %d, threshold %d)", dir.DomainRating, c.cfg.FallbackDRThreshold),
		Method:     types.MethodOracleFallback,
	}
}

// Classify runs the full cascade for a directory with a loaded snapshot.
func (c *Classifier) Classify(ctx context.Context, dir types.Directory, snapshot *types.PageSnapshot, profile types.BusinessProfile) types.RelevanceVerdict {
	if v := c.QuickCheck(dir); v != nil {
		return *v
	}
	if v := c.DeepCheck(dir, snapshot); v != nil {
		return *v
	}
	return *c.OracleCheck(ctx, dir, snapshot, profile)
}
