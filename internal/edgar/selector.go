package edgar

import "strings"

// Selector names an entity by ticker or by CIK. Exactly one must be set.
type Selector struct {
	Ticker string
	CIK    string
}

// ByTicker selects an entity by ticker symbol.
func ByTicker(ticker string) Selector {
	return Selector{Ticker: ticker}
}

// ByCIK selects an entity by central index key.
func ByCIK(cik string) Selector {
	return Selector{CIK: cik}
}

// ParseSelector treats an all-digit identifier as a CIK and anything else as
// a ticker.
func ParseSelector(id string) Selector {
	id = strings.TrimSpace(id)
	if id != "" && strings.Trim(id, "0123456789") == "" {
		return ByCIK(id)
	}
	return ByTicker(id)
}

// Validate enforces that exactly one identifier is set.
func (s Selector) Validate() error {
	ticker := strings.TrimSpace(s.Ticker)
	cik := strings.TrimSpace(s.CIK)
	switch {
	case ticker != "" && cik != "":
		return invalid("selector", "Provide either ticker or central_index_key, not both.")
	case ticker == "" && cik == "":
		return invalid("selector", "Provide either ticker or central_index_key.")
	}
	return nil
}

// String renders the selector as ticker:X, cik:N, or both when both are set.
func (s Selector) String() string {
	var parts []string
	if ticker := strings.TrimSpace(s.Ticker); ticker != "" {
		parts = append(parts, "ticker:"+strings.ToUpper(ticker))
	}
	if cik := strings.TrimSpace(s.CIK); cik != "" {
		parts = append(parts, "cik:"+cik)
	}
	return strings.Join(parts, ",")
}

// Lookup resolves a CIK from the company index by exact ticker or by a
// case-insensitive title substring. Exactly one must be set.
type Lookup struct {
	Ticker     string
	SearchText string
}

// Validate enforces that exactly one criterion is set.
func (l Lookup) Validate() error {
	ticker := strings.TrimSpace(l.Ticker)
	search := strings.TrimSpace(l.SearchText)
	if (ticker == "") == (search == "") {
		return invalid("lookup", "Provide exactly one of ticker or search_text.")
	}
	return nil
}
