// Package css models stylesheets as ordered rule sequences.
//
// The critical-CSS extractor needs rules in source cascade order with
// their original selector lists and reconstructable text; this package
// provides that view on top of the douceur parser.
package css
