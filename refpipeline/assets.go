// Package refpipeline is a minimal, fixed in-process Builder and
// Controller implementation: a tiny decode/filter/enrich asset chain
// driving a types.Document through an executor-boundary simulation, for
// this module's own tests and CLI demos. It intentionally does not
// implement a decoder/filter rule DSL — asset behavior is a small fixed
// set of Go functions, not data the Builder compiles from a policy graph.
package refpipeline

import "github.com/justapithecus/policyrt/types"

// AssetID identifies one asset within a chain, shaped <type>/<name>/<version>.
type AssetID string

// Transform runs one asset against the current document. It returns the
// (possibly unchanged) document, zero or more trace lines to emit, and
// whether the chain should continue to the next asset.
type Transform func(doc types.Document) (out types.Document, traceLines []string, keep bool)

// Asset is one named step of a Chain.
type Asset struct {
	ID        AssetID
	Transform Transform
}

// Chain is the PipelineExpression this package's Builder hands to its
// Controller constructor: an ordered list of assets to run per event.
type Chain struct {
	Name   string
	Assets []Asset
}

// NewDecodeAsset passes the document through unchanged, unconditionally
// continuing the chain and emitting one verbose trace line.
func NewDecodeAsset(id AssetID) Asset {
	return Asset{
		ID: id,
		Transform: func(doc types.Document) (types.Document, []string, bool) {
			return doc, []string{"[" + string(id) + "] decoded"}, true
		},
	}
}

// NewConditionFilterAsset builds a filter asset: when predicate(doc) is
// true, emits a condition trace line and continues; otherwise emits a
// condition trace line describing the drop and stops the chain.
func NewConditionFilterAsset(id AssetID, predicate func(types.Document) bool) Asset {
	return Asset{
		ID: id,
		Transform: func(doc types.Document) (types.Document, []string, bool) {
			if predicate(doc) {
				return doc, []string{"[" + string(id) + "] [condition]:matched"}, true
			}
			return doc, []string{"[" + string(id) + "] [condition]:dropped"}, false
		},
	}
}

// NewEnrichAsset builds an asset that transforms the document's value via
// enrich and emits a condition trace line reporting success.
func NewEnrichAsset(id AssetID, enrich func(any) any) Asset {
	return Asset{
		ID: id,
		Transform: func(doc types.Document) (types.Document, []string, bool) {
			next := types.NewDocument(enrich(doc.Value()))
			return next, []string{"[" + string(id) + "] [condition]:enriched"}, true
		},
	}
}
