package edgar

import (
	"fmt"
	"net/url"
)

// Endpoint paths double as cache keys, so they must be built identically on
// every call path.

// TickerIndexPath is served by the files host, not the data host.
const TickerIndexPath = "/files/company_tickers.json"

func submissionsPath(cik string) string {
	return fmt.Sprintf("/submissions/CIK%s.json", cik)
}

func companyConceptPath(cik, taxonomy, tag string) string {
	return fmt.Sprintf("/api/xbrl/companyconcept/CIK%s/%s/%s.json", cik, url.PathEscape(taxonomy), url.PathEscape(tag))
}

func companyFactsPath(cik string) string {
	return fmt.Sprintf("/api/xbrl/companyfacts/CIK%s.json", cik)
}

func framesPath(taxonomy, tag, unit, period string) string {
	return fmt.Sprintf("/api/xbrl/frames/%s/%s/%s/%s.json", url.PathEscape(taxonomy), url.PathEscape(tag), url.PathEscape(unit), period)
}
