package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// ErrUnexpectedShape is returned when a response body does not have the
// structure an endpoint documents.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// addressOrder fixes the position of the documented address kinds.
var addressOrder = []string{"mailing", "business"}

// DecodeSubmissionHistory maps a submissions response.
func DecodeSubmissionHistory(raw any) (*SubmissionHistory, error) {
	body, err := asObject(raw, "submissions")
	if err != nil {
		return nil, err
	}

	out := &SubmissionHistory{}
	if err := decode(body, out); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}

	if addresses, ok := body["addresses"].(map[string]any); ok {
		for _, kind := range orderedKeys(addresses, addressOrder) {
			fields, ok := addresses[kind].(map[string]any)
			if !ok {
				continue
			}
			address := Address{AddressType: kind}
			if err := decode(fields, &address); err != nil {
				return nil, fmt.Errorf("decode %s address: %w", kind, err)
			}
			out.Addresses = append(out.Addresses, address)
		}
	}

	if filings, ok := body["filings"].(map[string]any); ok {
		if recent, ok := filings["recent"].(map[string]any); ok {
			rows, err := expandColumns(recent)
			if err != nil {
				return nil, fmt.Errorf("decode recent filings: %w", err)
			}
			out.Filings = make([]Filing, 0, len(rows))
			for i, row := range rows {
				var filing Filing
				if err := decode(row, &filing); err != nil {
					return nil, fmt.Errorf("decode filing %d: %w", i, err)
				}
				out.Filings = append(out.Filings, filing)
			}
		}
		if files, ok := filings["files"]; ok && files != nil {
			if err := decode(files, &out.Files); err != nil {
				return nil, fmt.Errorf("decode filing files: %w", err)
			}
		}
	}

	return out, nil
}

// DecodeCompanyConcept maps a companyconcept response.
func DecodeCompanyConcept(raw any) (*CompanyConcept, error) {
	body, err := asObject(raw, "company concept")
	if err != nil {
		return nil, err
	}

	out := &CompanyConcept{}
	if err := decode(body, out); err != nil {
		return nil, fmt.Errorf("decode company concept: %w", err)
	}

	units, err := decodeUnits(body["units"])
	if err != nil {
		return nil, fmt.Errorf("decode company concept units: %w", err)
	}
	out.Units = units
	return out, nil
}

// DecodeCompanyFacts maps a companyfacts response. Taxonomies and tags are
// returned in lexical order.
func DecodeCompanyFacts(raw any) (*CompanyFacts, error) {
	body, err := asObject(raw, "company facts")
	if err != nil {
		return nil, err
	}

	out := &CompanyFacts{}
	if err := decode(body, out); err != nil {
		return nil, fmt.Errorf("decode company facts: %w", err)
	}

	facts, _ := body["facts"].(map[string]any)
	for _, taxonomy := range orderedKeys(facts, nil) {
		tags, ok := facts[taxonomy].(map[string]any)
		if !ok {
			continue
		}
		group := TaxonomyFacts{Taxonomy: taxonomy}
		for _, tag := range orderedKeys(tags, nil) {
			fields, ok := tags[tag].(map[string]any)
			if !ok {
				continue
			}
			disclosure := TaxonomyDisclosures{Tag: tag}
			if err := decode(fields, &disclosure); err != nil {
				return nil, fmt.Errorf("decode %s/%s: %w", taxonomy, tag, err)
			}
			units, err := decodeUnits(fields["units"])
			if err != nil {
				return nil, fmt.Errorf("decode %s/%s units: %w", taxonomy, tag, err)
			}
			disclosure.Units = units
			group.Disclosures = append(group.Disclosures, disclosure)
		}
		out.Facts = append(out.Facts, group)
	}

	return out, nil
}

// DecodeFrame maps a frames response.
func DecodeFrame(raw any) (*Frame, error) {
	body, err := asObject(raw, "frame")
	if err != nil {
		return nil, err
	}

	out := &Frame{}
	if err := decode(body, out); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return out, nil
}

// DecodeCompanies maps the ticker index, which is an object keyed by row
// number ("0", "1", ...). Rows are returned in numeric key order. A plain list
// of rows is accepted as well.
func DecodeCompanies(raw any) ([]Company, error) {
	if rows, ok := raw.([]any); ok {
		out := make([]Company, 0, len(rows))
		for i, row := range rows {
			var company Company
			if err := decode(row, &company); err != nil {
				return nil, fmt.Errorf("decode company %d: %w", i, err)
			}
			out = append(out, company)
		}
		return out, nil
	}

	body, err := asObject(raw, "company index")
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})

	out := make([]Company, 0, len(keys))
	for _, key := range keys {
		var company Company
		if err := decode(body[key], &company); err != nil {
			return nil, fmt.Errorf("decode company %s: %w", key, err)
		}
		out = append(out, company)
	}
	return out, nil
}

// decodeUnits flattens {"USD": [...], "shares": [...]} into disclosures that
// carry their unit. Units are visited in lexical order.
func decodeUnits(raw any) ([]UnitDisclosure, error) {
	units, _ := raw.(map[string]any)
	out := make([]UnitDisclosure, 0)
	for _, unit := range orderedKeys(units, nil) {
		rows, ok := units[unit].([]any)
		if !ok {
			continue
		}
		for _, row := range rows {
			disclosure := UnitDisclosure{Unit: unit}
			if err := decode(row, &disclosure); err != nil {
				return nil, fmt.Errorf("unit %s: %w", unit, err)
			}
			out = append(out, disclosure)
		}
	}
	return out, nil
}

// expandColumns turns {"a": [1, 2], "b": [3, 4]} into [{"a":1,"b":3},
// {"a":2,"b":4}]. Short columns leave the field unset on later rows.
func expandColumns(columns map[string]any) ([]map[string]any, error) {
	rows := 0
	for name, column := range columns {
		values, ok := column.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: column %q is not a list", ErrUnexpectedShape, name)
		}
		if len(values) > rows {
			rows = len(values)
		}
	}

	out := make([]map[string]any, rows)
	for i := range out {
		out[i] = make(map[string]any, len(columns))
	}
	for name, column := range columns {
		for i, value := range column.([]any) {
			out[i][name] = value
		}
	}
	return out, nil
}

func decode(input any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(input)
}

func asObject(raw any, what string) (map[string]any, error) {
	body, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s body is %T, want object", ErrUnexpectedShape, what, raw)
	}
	return body, nil
}

// orderedKeys returns the keys of m with the preferred ones first (when
// present) and the rest sorted.
func orderedKeys(m map[string]any, preferred []string) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(preferred))
	for _, key := range preferred {
		if _, ok := m[key]; ok {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	rest := make([]string, 0, len(m))
	for key := range m {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
