package edgar

import (
	"context"
	"strings"

	"github.com/edgarlens/edgarlens/internal/core"
	"github.com/edgarlens/edgarlens/internal/core/engine"
)

// resolveSelector validates sel and returns a ten-digit CIK, consulting the
// ticker index when sel names a ticker.
func resolveSelector(ctx context.Context, files engine.Fetcher, sel Selector) (string, error) {
	if err := sel.Validate(); err != nil {
		return "", err
	}
	if cik := strings.TrimSpace(sel.CIK); cik != "" {
		return ValidateCIK(cik)
	}
	return getCIK(ctx, files, Lookup{Ticker: sel.Ticker})
}

func getCIK(ctx context.Context, files engine.Fetcher, lookup Lookup) (string, error) {
	if err := lookup.Validate(); err != nil {
		return "", err
	}
	companies, err := universe(ctx, files)
	if err != nil {
		return "", err
	}

	if ticker := strings.TrimSpace(lookup.Ticker); ticker != "" {
		for _, company := range companies {
			if strings.EqualFold(company.Ticker, ticker) {
				return ValidateCIK(company.CIK)
			}
		}
		return "", &NotFoundError{Kind: "Ticker", Value: ticker}
	}

	search := strings.TrimSpace(lookup.SearchText)
	needle := strings.ToLower(search)
	for _, company := range companies {
		if strings.Contains(strings.ToLower(company.Title), needle) {
			return ValidateCIK(company.CIK)
		}
	}
	return "", &NotFoundError{Kind: "Search text", Value: search}
}

func universe(ctx context.Context, files engine.Fetcher) ([]core.Company, error) {
	raw, err := files.Fetch(ctx, TickerIndexPath)
	if err != nil {
		return nil, err
	}
	return core.DecodeCompanies(raw)
}

// FilterByTickerPrefix returns the companies whose ticker starts with prefix,
// ignoring case. An empty prefix returns companies unchanged.
func FilterByTickerPrefix(companies []core.Company, prefix string) []core.Company {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return companies
	}
	filtered := make([]core.Company, 0)
	for _, company := range companies {
		if strings.HasPrefix(strings.ToUpper(company.Ticker), prefix) {
			filtered = append(filtered, company)
		}
	}
	return filtered
}
