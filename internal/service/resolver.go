package service

import (
	"context"
	"log/slog"

	"commander_go/internal/domain"
)

// Resolver turns a card name into a PriceQuote by trying the local-currency
// source first and the converted reference source second. Calls are strictly
// sequential; the two sources are never raced.
type Resolver struct {
	local     domain.PriceSource
	reference domain.PriceSource
	rates     domain.ExchangeRateProvider
}

// NewResolver wires the sources. local and rates may be nil.
func NewResolver(local, reference domain.PriceSource, rates domain.ExchangeRateProvider) *Resolver {
	return &Resolver{local: local, reference: reference, rates: rates}
}

// Resolve is ResolveWith(ctx, card, true)
func (r *Resolver) Resolve(ctx context.Context, card string) (domain.PriceQuote, bool) {
	return r.ResolveWith(ctx, card, true)
}

// ResolveWith returns false when no source produced a price; callers must
// treat that as "price unknown", not zero. The quote's Currency is always set
// and is the reference currency when conversion was not possible.
func (r *Resolver) ResolveWith(ctx context.Context, card string, preferLocal bool) (domain.PriceQuote, bool) {
	if preferLocal && r.local != nil {
		price, err := r.local.Fetch(ctx, card)
		if err == nil {
			return domain.PriceQuote{Price: price, Source: domain.SourceLocal, Currency: r.local.Currency()}, true
		}
		slog.Debug("Local price unavailable, falling back",
			slog.String("card", card), slog.String("source", r.local.Name()), slog.Any("error", err))
	}

	if r.reference == nil {
		return domain.PriceQuote{}, false
	}

	price, err := r.reference.Fetch(ctx, card)
	if err != nil {
		slog.Info("No price from any source", slog.String("card", card), slog.Any("error", err))
		return domain.PriceQuote{}, false
	}

	quote := domain.PriceQuote{Price: price, Source: domain.SourceConverted, Currency: r.reference.Currency()}
	if r.rates == nil || r.rates.Base() != quote.Currency {
		return quote, true
	}

	rate, err := r.rates.Rate(ctx)
	if err != nil {
		slog.Warn("Exchange rate unavailable, returning unconverted price",
			slog.String("card", card), slog.String("currency", quote.Currency), slog.Any("error", err))
		return quote, true
	}

	quote.Price = price.Mul(rate)
	quote.Currency = r.rates.Target()
	return quote, true
}

// TargetCurrency is the currency quotes are expressed in when every source works
func (r *Resolver) TargetCurrency() string {
	switch {
	case r.local != nil:
		return r.local.Currency()
	case r.rates != nil:
		return r.rates.Target()
	case r.reference != nil:
		return r.reference.Currency()
	default:
		return ""
	}
}
