package edgar

import (
	"context"

	"github.com/edgarlens/edgarlens/internal/core"
	"github.com/edgarlens/edgarlens/internal/core/engine"
)

// AsyncClient routes calls through the cooperative limiter and its own
// transport. It is safe for many concurrent callers and shares cache and quota
// with the Client it came from.
type AsyncClient struct {
	client *Client
	data   *engine.Executor
	files  *engine.Executor
}

// Submissions returns the filing history of an entity.
func (a *AsyncClient) Submissions(ctx context.Context, sel Selector) (*core.SubmissionHistory, error) {
	return submissions(ctx, a.data, a.files, sel)
}

// CompanyConcept returns every disclosure an entity made for one concept.
func (a *AsyncClient) CompanyConcept(ctx context.Context, sel Selector, taxonomy, tag string) (*core.CompanyConcept, error) {
	return companyConcept(ctx, a.data, a.files, sel, taxonomy, tag)
}

// CompanyFacts returns every concept an entity has disclosed.
func (a *AsyncClient) CompanyFacts(ctx context.Context, sel Selector) (*core.CompanyFacts, error) {
	return companyFacts(ctx, a.data, a.files, sel)
}

// Frames returns one concept across entities for a calendar period.
func (a *AsyncClient) Frames(ctx context.Context, taxonomy, tag, unit string, period any, instantaneous bool) (*core.Frame, error) {
	return frames(ctx, a.data, taxonomy, tag, unit, period, instantaneous)
}

// GetCIK resolves a zero-padded CIK from the company index.
func (a *AsyncClient) GetCIK(ctx context.Context, lookup Lookup) (string, error) {
	return getCIK(ctx, a.files, lookup)
}

// Status reports the shared quota and cache state.
func (a *AsyncClient) Status() Status {
	return a.client.Status()
}

// Universe returns every company in the ticker index.
func (a *AsyncClient) Universe(ctx context.Context) ([]core.Company, error) {
	return universe(ctx, a.files)
}

// SubmissionsBatch fetches submission histories for many entities
// concurrently. Results come back in input order with per-item errors.
func (a *AsyncClient) SubmissionsBatch(ctx context.Context, selectors []Selector, opts engine.BatchOptions) ([]engine.BatchItem[*core.SubmissionHistory], error) {
	return runSelectors(ctx, a, selectors, opts, a.Submissions)
}

// CompanyFactsBatch fetches company facts for many entities concurrently.
func (a *AsyncClient) CompanyFactsBatch(ctx context.Context, selectors []Selector, opts engine.BatchOptions) ([]engine.BatchItem[*core.CompanyFacts], error) {
	return runSelectors(ctx, a, selectors, opts, a.CompanyFacts)
}

func runSelectors[T any](ctx context.Context, a *AsyncClient, selectors []Selector, opts engine.BatchOptions, fn func(context.Context, Selector) (T, error)) ([]engine.BatchItem[T], error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = a.client.settings.workers
	}

	keys := make([]string, len(selectors))
	bySelector := make(map[string]Selector, len(selectors))
	for i, sel := range selectors {
		keys[i] = sel.String()
		bySelector[keys[i]] = sel
	}

	return engine.RunBatch(ctx, keys, opts, func(ctx context.Context, key string) (T, error) {
		return fn(ctx, bySelector[key])
	})
}
