// Package render provides the layout collaborator: given a document and
// a viewport, it reports element bounding boxes so other stages can make
// above-the-fold decisions.
//
// Two implementations exist. BrowserRenderer drives a headless browser
// for real layout. HeuristicRenderer estimates positions from document
// order and is the fallback when no browser is available; its results
// are approximate but deterministic, which also makes it the renderer
// used in tests.
package render
