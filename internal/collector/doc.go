// Package collector implements the collection strategy: fetching a
// marketplace listing page through a proxy, extracting the item table, and
// fetching each item's detail page for its body text.
//
// The package exposes a single-method Collector interface so the job engine
// stays independent of site-specific parsing rules. Marketplace is the
// production implementation; tests inject fakes.
package collector
