// Package app contains the cycle enumeration service for the discovery context.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flashcycle/flashcycle/business/discovery/domain"
	"github.com/flashcycle/flashcycle/internal/kvstore"
	"github.com/flashcycle/flashcycle/internal/logger"
	"github.com/flashcycle/flashcycle/internal/token"
)

const tracerName = "github.com/flashcycle/flashcycle/business/discovery/app"

// Enumerator produces all ordered token cycles of a fixed length.
// Results are persisted with no TTL; the token topology rarely changes.
type Enumerator struct {
	store  kvstore.Store
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewEnumerator creates a new Enumerator.
func NewEnumerator(store kvstore.Store, log logger.LoggerInterface) *Enumerator {
	return &Enumerator{
		store:  store,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
}

// Enumerate returns every ordered length-long cycle over the given tokens,
// grouped by starting token. Fewer tokens than length yields an empty set.
func (e *Enumerator) Enumerate(ctx context.Context, tokens []token.Token, length int) (domain.CycleSet, error) {
	ctx, span := e.tracer.Start(ctx, "discovery.enumerate",
		trace.WithAttributes(
			attribute.Int("tokens", len(tokens)),
			attribute.Int("length", length),
		),
	)
	defer span.End()

	if length < 2 || len(tokens) < length {
		span.AddEvent("degenerate_input")
		return domain.CycleSet{}, nil
	}

	// Stable cache key regardless of caller ordering.
	sorted := make([]token.Token, len(tokens))
	copy(sorted, tokens)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	key := cacheKey(sorted, length)

	if raw, err := e.store.Get(ctx, key); err == nil {
		set, decodeErr := domain.DecodeCycleSet(raw)
		if decodeErr == nil {
			span.AddEvent("cache_hit", trace.WithAttributes(attribute.Int("cycles", set.Total())))
			return set, nil
		}
		// Corrupt entry: drop it and recompute.
		e.logger.Warn(ctx, "discarding corrupt cycle cache entry", "key", key, "error", decodeErr)
		_ = e.store.Remove(ctx, key)
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		e.logger.Warn(ctx, "cycle cache read failed, recomputing", "key", key, "error", err)
	}

	set := enumerate(sorted, length)

	raw, err := domain.EncodeCycleSet(set)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := e.store.Write(ctx, key, raw, 0); err != nil {
		// Cache write failure is not fatal; the result is still good.
		e.logger.Warn(ctx, "cycle cache write failed", "key", key, "error", err)
	}

	e.logger.Info(ctx, "token cycles enumerated",
		"tokens", len(tokens), "length", length, "cycles", set.Total())

	span.SetAttributes(attribute.Int("cycles", set.Total()))
	span.SetStatus(codes.Ok, "enumerated")

	return set, nil
}

func cacheKey(sorted []token.Token, length int) string {
	symbols := make([]string, len(sorted))
	for i, t := range sorted {
		symbols[i] = t.Symbol
	}
	return fmt.Sprintf("cycles:%d-%s", length, strings.Join(symbols, ","))
}

// enumerate walks every ordered length-long selection by swapping within
// a single index slice and backtracking, so no per-call slices are
// allocated while recursing.
func enumerate(tokens []token.Token, length int) domain.CycleSet {
	set := make(domain.CycleSet)

	idx := make([]int, len(tokens))
	for i := range idx {
		idx[i] = i
	}

	var rec func(depth int)
	rec = func(depth int) {
		if depth == length {
			cycle := domain.TokenCycle{Tokens: make([]token.Token, length)}
			for i := 0; i < length; i++ {
				cycle.Tokens[i] = tokens[idx[i]]
			}
			start := cycle.Start().Key()
			set[start] = append(set[start], cycle)
			return
		}
		for i := depth; i < len(idx); i++ {
			idx[depth], idx[i] = idx[i], idx[depth]
			rec(depth + 1)
			idx[depth], idx[i] = idx[i], idx[depth]
		}
	}
	rec(0)

	return set
}
