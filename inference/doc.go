// Package inference manages per-language scoring models behind a lazy
// registry. Models are expensive to load, so the registry loads each
// language at most once and shares the loaded instance across all callers.
//
// The registry does not know how a model is produced. Callers supply a
// [LoaderFunc]; anything from an in-process scorer to a remote model server
// fits behind the [Predictor] interface.
package inference
