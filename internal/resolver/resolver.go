// Package resolver maps raw export item names onto catalog items. Exact
// alias hits win; otherwise a conservative fuzzy match against the
// catalog either reuses an existing item or, when nothing is close
// enough, creates a new one. Near-ties are refused rather than guessed.
package resolver

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
	"github.com/bakesight/bakesight-server/internal/id"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/store"
)

// Resolver resolves raw item names for one ingest batch. It snapshots
// the catalog up front so a batch sees a consistent view, and remembers
// names it already resolved within the batch.
type Resolver struct {
	store     store.Store
	logger    *logger.Logger
	threshold float64
	margin    float64
	rules     []Rule

	byAlias map[string]string // normalized alias -> item ID
	items   map[string]*catalogEntry
	created int
}

type catalogEntry struct {
	item   *domain.Item
	norm   string
	tokens map[string]bool
}

// Result reports how a name was resolved.
type Result struct {
	ItemID  string
	Created bool
}

// New snapshots the catalog and returns a resolver for one batch.
// threshold is the minimum fuzzy similarity to reuse an existing item;
// margin is how clearly the best candidate must beat the runner-up.
func New(ctx context.Context, st store.Store, log *logger.Logger, threshold, margin float64) (*Resolver, error) {
	r := &Resolver{
		store:     st,
		logger:    log,
		threshold: threshold,
		margin:    margin,
		byAlias:   make(map[string]string),
		items:     make(map[string]*catalogEntry),
	}

	items, err := st.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		norm := domain.NormalizeItemName(it.CanonicalName)
		r.items[it.ID] = &catalogEntry{item: it, norm: norm, tokens: tokenize(norm)}
		r.byAlias[norm] = it.ID
	}

	aliases, err := st.ListAliases(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range aliases {
		r.byAlias[a.Alias] = a.ItemID
	}

	return r, nil
}

// Created returns how many new items this batch minted.
func (r *Resolver) Created() int { return r.created }

// UseRules installs canonicalization rules consulted ahead of fuzzy
// matching.
func (r *Resolver) UseRules(rules []Rule) { r.rules = rules }

// Resolve maps one raw name to an item ID, creating item and alias rows
// as needed. Returns a RESOLUTION_AMBIGUOUS error when two catalog items
// are too close to call; the batch should surface that for a human
// merge decision instead of silently splitting history.
func (r *Resolver) Resolve(ctx context.Context, rawName string) (*Result, error) {
	norm := domain.NormalizeItemName(rawName)
	if norm == "" {
		return nil, errors.Validation("empty item name")
	}

	// Exact alias or canonical-name hit.
	if itemID, ok := r.byAlias[norm]; ok {
		return &Result{ItemID: itemID}, nil
	}

	// Canonicalization rules beat fuzzy matching.
	for _, rule := range r.rules {
		if !rule.Pattern.MatchString(norm) {
			continue
		}
		canonNorm := domain.NormalizeItemName(rule.Canonical)
		if itemID, ok := r.byAlias[canonNorm]; ok {
			if err := r.saveAlias(ctx, norm, itemID); err != nil {
				return nil, err
			}
			r.logger.Info("rule-resolved item name",
				"name", rawName, "item_id", itemID, "canonical", rule.Canonical)
			return &Result{ItemID: itemID}, nil
		}
		res, err := r.createItem(ctx, rule.Canonical, canonNorm)
		if err != nil {
			return nil, err
		}
		if err := r.saveAlias(ctx, norm, res.ItemID); err != nil {
			return nil, err
		}
		return res, nil
	}

	// Fuzzy match against the catalog.
	best, runnerUp := r.closest(norm)
	if best != nil && best.score >= r.threshold {
		if runnerUp != nil && best.score-runnerUp.score <= r.margin {
			return nil, errors.Ambiguousf(
				"%q matches both %q and %q too closely to pick one",
				rawName, best.entry.item.CanonicalName, runnerUp.entry.item.CanonicalName,
			).WithDetails(map[string]any{
				"name":       rawName,
				"candidates": []string{best.entry.item.ID, runnerUp.entry.item.ID},
			})
		}

		itemID := best.entry.item.ID
		if err := r.saveAlias(ctx, norm, itemID); err != nil {
			return nil, err
		}
		r.logger.Info("fuzzy-resolved item name",
			"name", rawName,
			"item_id", itemID,
			"canonical", best.entry.item.CanonicalName,
			"score", best.score,
		)
		return &Result{ItemID: itemID}, nil
	}

	// Nothing close: mint a new catalog item.
	return r.createItem(ctx, rawName, norm)
}

type candidate struct {
	entry *catalogEntry
	score float64
}

// closest returns the best and second-best fuzzy candidates. Scoring
// takes the better of token-set and character-bigram similarity, so both
// reorderings ("loaf sourdough") and typos ("sourdough lf") land.
func (r *Resolver) closest(norm string) (best, runnerUp *candidate) {
	tokens := tokenize(norm)

	var cands []candidate
	for _, entry := range r.items {
		score := max(tokenSimilarity(tokens, entry.tokens), bigramSimilarity(norm, entry.norm))
		cands = append(cands, candidate{entry: entry, score: score})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].entry.item.ID < cands[j].entry.item.ID
	})

	if len(cands) > 0 {
		best = &cands[0]
	}
	if len(cands) > 1 {
		runnerUp = &cands[1]
	}
	return best, runnerUp
}

func (r *Resolver) createItem(ctx context.Context, rawName, norm string) (*Result, error) {
	itemID, err := id.Generate(id.PrefixItem)
	if err != nil {
		return nil, err
	}

	item := domain.NewItem(itemID, strings.TrimSpace(rawName))
	if err := r.store.CreateItem(ctx, item); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Another writer minted it; fall back to the stored row.
			existing, gerr := r.store.GetItemByName(ctx, item.CanonicalName)
			if gerr != nil {
				return nil, err
			}
			r.admit(existing)
			return &Result{ItemID: existing.ID}, nil
		}
		return nil, err
	}

	r.admit(item)
	r.created++
	if err := r.saveAlias(ctx, norm, item.ID); err != nil {
		return nil, err
	}
	r.logger.Info("created catalog item", "item_id", item.ID, "name", item.CanonicalName)
	return &Result{ItemID: item.ID, Created: true}, nil
}

// admit adds an item to the in-memory snapshot.
func (r *Resolver) admit(item *domain.Item) {
	norm := domain.NormalizeItemName(item.CanonicalName)
	r.items[item.ID] = &catalogEntry{item: item, norm: norm, tokens: tokenize(norm)}
	r.byAlias[norm] = item.ID
}

func (r *Resolver) saveAlias(ctx context.Context, norm, itemID string) error {
	r.byAlias[norm] = itemID
	err := r.store.AddAlias(ctx, &domain.ItemAlias{
		Alias:     norm,
		ItemID:    itemID,
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil
	}
	return err
}

// tokenize splits a normalized name into a token set, folding simple
// plurals so "croissants" matches "croissant".
func tokenize(norm string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(norm, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(tok) > 3 && strings.HasSuffix(tok, "s") {
			tok = strings.TrimSuffix(tok, "s")
		}
		tokens[tok] = true
	}
	return tokens
}

// tokenSimilarity is the Jaccard index over token sets, with a small
// bonus when one set contains the other ("sourdough" vs "sourdough
// loaf" is usually the same product line).
func tokenSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	score := float64(inter) / float64(union)

	if inter == len(a) || inter == len(b) {
		score += 0.15
		if score > 1 {
			score = 1
		}
	}
	return score
}

// bigramSimilarity is the Sørensen–Dice coefficient over character
// bigrams of the normalized names.
func bigramSimilarity(a, b string) float64 {
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	inter := 0
	for bg, n := range ba {
		if m, ok := bb[bg]; ok {
			inter += min(n, m)
		}
	}
	total := 0
	for _, n := range ba {
		total += n
	}
	for _, n := range bb {
		total += n
	}
	return 2 * float64(inter) / float64(total)
}

func bigrams(s string) map[string]int {
	out := make(map[string]int)
	runes := []rune(s)
	for i := 0; i+1 < len(runes); i++ {
		out[string(runes[i:i+2])]++
	}
	return out
}
