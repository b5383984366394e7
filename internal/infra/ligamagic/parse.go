package ligamagic

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Words expected somewhere on a genuine card page
var pageIndicators = []string{"magic", "mana", "card", "carta", "creature", "instant", "sorcery"}

const (
	selectorDeferredPrices = "div.container-show-price-mkp"
	selectorAveragePrice   = "div.price-avg"
	selectorRenderedPrice  = "div.price-mkp div.min div.price"
	selectorRenderReady    = ".price-mkp"
)

// pageInfo is what the search page tells us about a card
type pageInfo struct {
	deferred bool // prices are filled in by scripts after load
	valid    bool
	prices   []decimal.Decimal
}

func inspectPage(doc *goquery.Document) pageInfo {
	info := pageInfo{
		deferred: doc.Find(selectorDeferredPrices).Length() > 0,
	}

	avg := doc.Find(selectorAveragePrice)
	if avg.Length() > 0 {
		text := strings.ToLower(doc.Text())
		for _, word := range pageIndicators {
			if strings.Contains(text, word) {
				info.valid = true
				break
			}
		}
	}

	info.prices = positivePrices(avg)
	return info
}

// renderedPrice extracts the cheapest marketplace price from a rendered card page
func renderedPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	return lowest(positivePrices(doc.Find(selectorRenderedPrice)))
}

func positivePrices(sel *goquery.Selection) []decimal.Decimal {
	var prices []decimal.Decimal
	sel.Each(func(_ int, s *goquery.Selection) {
		if p, ok := parseBRL(s.Text()); ok && p.IsPositive() {
			prices = append(prices, p)
		}
	})
	return prices
}

func lowest(prices []decimal.Decimal) (decimal.Decimal, bool) {
	if len(prices) == 0 {
		return decimal.Zero, false
	}
	return decimal.Min(prices[0], prices[1:]...), true
}

// parseBRL converts "R$ 1.234,56" into 1234.56
func parseBRL(s string) (decimal.Decimal, bool) {
	clean := strings.ReplaceAll(s, "R$", "")
	clean = strings.ReplaceAll(clean, " ", "")
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
