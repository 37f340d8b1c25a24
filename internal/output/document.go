package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edgarlens/edgarlens/internal/core"
)

// field is one key/value line shown above a table.
type field struct {
	Key   string
	Value string
}

// document is the tabular projection shared by the table and markdown
// formatters.
type document struct {
	Title   string
	Fields  []field
	Header  []string
	Rows    [][]string
	Summary string
}

func documentFor(value any) (*document, error) {
	switch v := value.(type) {
	case *core.SubmissionHistory:
		return submissionsDocument(v), nil
	case *core.CompanyConcept:
		return conceptDocument(v), nil
	case *core.CompanyFacts:
		return factsDocument(v), nil
	case *core.Frame:
		return frameDocument(v), nil
	case []core.Company:
		return companiesDocument(v), nil
	case string:
		return &document{Header: []string{"CIK"}, Rows: [][]string{{v}}}, nil
	default:
		return nil, fmt.Errorf("cannot render %T as a table", value)
	}
}

func submissionsDocument(h *core.SubmissionHistory) *document {
	if h == nil {
		return &document{}
	}
	doc := &document{
		Title: fmt.Sprintf("%s (CIK %s)", h.Name, h.CIK),
		Fields: nonEmpty(
			field{"Tickers", strings.Join(h.Tickers, ", ")},
			field{"Exchanges", strings.Join(h.Exchanges, ", ")},
			field{"Entity type", h.EntityType},
			field{"SIC", joinNonEmpty(" ", h.SIC, h.SICDescription)},
			field{"Category", h.Category},
			field{"Fiscal year end", h.FiscalYearEnd},
			field{"Incorporated", h.StateOfIncorporationDescription},
		),
		Header: []string{"Form", "Filed", "Report date", "Accession", "Primary document"},
	}
	for _, f := range h.Filings {
		doc.Rows = append(doc.Rows, []string{f.Form, f.FilingDate, f.ReportDate, f.AccessionNumber, f.PrimaryDocument})
	}
	doc.Summary = fmt.Sprintf("%d recent filings, %d additional files", len(h.Filings), len(h.Files))
	return doc
}

func conceptDocument(c *core.CompanyConcept) *document {
	if c == nil {
		return &document{}
	}
	doc := &document{
		Title: fmt.Sprintf("%s: %s/%s", c.EntityName, c.Taxonomy, c.Tag),
		Fields: nonEmpty(
			field{"CIK", c.CIK},
			field{"Label", c.Label},
		),
		Header: []string{"Unit", "End", "Value", "Form", "FY", "FP", "Filed", "Frame"},
	}
	for _, u := range c.Units {
		doc.Rows = append(doc.Rows, unitRow(u))
	}
	doc.Summary = fmt.Sprintf("%d disclosures", len(c.Units))
	return doc
}

func factsDocument(f *core.CompanyFacts) *document {
	if f == nil {
		return &document{}
	}
	doc := &document{
		Title:  fmt.Sprintf("%s (CIK %s)", f.EntityName, f.CIK),
		Header: []string{"Taxonomy", "Tag", "Label", "Units", "Disclosures"},
	}
	concepts := 0
	for _, taxonomy := range f.Facts {
		for _, d := range taxonomy.Disclosures {
			concepts++
			doc.Rows = append(doc.Rows, []string{
				taxonomy.Taxonomy,
				d.Tag,
				d.Label,
				strings.Join(distinctUnits(d.Units), ", "),
				strconv.Itoa(len(d.Units)),
			})
		}
	}
	doc.Summary = fmt.Sprintf("%d concepts across %d taxonomies", concepts, len(f.Facts))
	return doc
}

func frameDocument(fr *core.Frame) *document {
	if fr == nil {
		return &document{}
	}
	doc := &document{
		Title: fmt.Sprintf("%s/%s %s %s", fr.Taxonomy, fr.Tag, fr.UOM, fr.CCP),
		Fields: nonEmpty(
			field{"Label", fr.Label},
		),
		Header: []string{"CIK", "Entity", "Location", "End", "Value", "Accession"},
	}
	for _, d := range fr.Disclosures {
		doc.Rows = append(doc.Rows, []string{d.CIK, d.EntityName, d.Location, d.End, formatValue(d.Value), d.Accession})
	}
	doc.Summary = fmt.Sprintf("%d data points", fr.Points)
	return doc
}

func companiesDocument(companies []core.Company) *document {
	doc := &document{Header: []string{"CIK", "Ticker", "Title"}}
	for _, c := range companies {
		doc.Rows = append(doc.Rows, []string{c.CIK, c.Ticker, c.Title})
	}
	doc.Summary = fmt.Sprintf("%d companies", len(companies))
	return doc
}

func unitRow(u core.UnitDisclosure) []string {
	fy := ""
	if u.FiscalYear != 0 {
		fy = strconv.Itoa(u.FiscalYear)
	}
	return []string{u.Unit, u.End, formatValue(u.Value), u.Form, fy, u.FiscalPart, u.Filed, u.Frame}
}

func distinctUnits(units []core.UnitDisclosure) []string {
	seen := make(map[string]bool, len(units))
	var out []string
	for _, u := range units {
		if !seen[u.Unit] {
			seen[u.Unit] = true
			out = append(out, u.Unit)
		}
	}
	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nonEmpty(fields ...field) []field {
	out := fields[:0]
	for _, f := range fields {
		if strings.TrimSpace(f.Value) != "" {
			out = append(out, f)
		}
	}
	return out
}

func joinNonEmpty(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}
