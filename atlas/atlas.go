// Package atlas merges the textures of a scene into atlas pages per slot family and
// redirects material slots to them, either through texture transforms or by
// rebaking texture coordinates.
package atlas

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gltfatlas/scene"
)

// TypeReport summarizes the pass of one atlas type.
type TypeReport struct {
	Type     Type
	Pages    []*Page
	Sprites  int
	Rejected []Rejection
	// Fallbacks counts slots remapped projectively because rebaking was not possible.
	Fallbacks int
	// Err is set when the pass failed. Failures before rewriting leave the document unchanged.
	Err error
}

// Report collects the type reports of a Run.
type Report struct {
	Types []TypeReport
}

// Err combines the errors of all failed types.
func (r *Report) Err() error {
	var err error
	for _, t := range r.Types {
		if t.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", t.Type, t.Err))
		}
	}
	return err
}

// Pages returns every page produced, in type then page order.
func (r *Report) Pages() []*Page {
	var pages []*Page
	for _, t := range r.Types {
		pages = append(pages, t.Pages...)
	}
	return pages
}

// Run atlases the textures of doc for each configured type. Types are processed
// independently: a failing type is recorded in its TypeReport and the next one
// proceeds. The returned error is non-nil only for invalid options, in which case
// doc is untouched.
func Run(doc *scene.Document, opts Options) (*Report, error) {
	filter, err := opts.validate()
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	report := &Report{}
	for _, typ := range opts.types() {
		tr := runType(doc, typ, &opts, filter)
		fields := []zap.Field{
			zap.String("type", typ.String()),
			zap.Int("pages", len(tr.Pages)),
			zap.Int("sprites", tr.Sprites),
			zap.Int("rejected", len(tr.Rejected)),
			zap.Int("fallbacks", tr.Fallbacks),
		}
		if tr.Err != nil {
			log.Error("atlas type failed", append(fields, zap.Error(tr.Err))...)
		} else if tr.Sprites > 0 || len(tr.Rejected) > 0 {
			log.Info("atlas type done", fields...)
		}
		report.Types = append(report.Types, tr)
	}
	return report, nil
}

func runType(doc *scene.Document, typ Type, opts *Options, filter *compiledFilter) TypeReport {
	tr := TypeReport{Type: typ}
	cands, rejected, err := collect(doc, typ, opts, filter)
	tr.Rejected = rejected
	if err != nil {
		tr.Err = fmt.Errorf("collect: %w", err)
		return tr
	}
	if len(cands) == 0 {
		return tr
	}
	pages, err := packCandidates(typ, cands, opts)
	if err != nil {
		tr.Err = fmt.Errorf("pack: %w", err)
		return tr
	}
	if err := composePages(pages, opts); err != nil {
		tr.Err = fmt.Errorf("compose: %w", err)
		return tr
	}
	fallbacks, err := rewrite(doc, pages, opts)
	tr.Pages, tr.Sprites, tr.Fallbacks = pages, len(cands), fallbacks
	if err != nil {
		tr.Err = fmt.Errorf("rewrite: %w", err)
	}
	return tr
}
