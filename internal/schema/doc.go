// Package schema declares the fixed feature schema every frame in a dataset
// must conform to.
//
// A Schema maps feature names to dtype/shape declarations. It is persisted in
// the dataset metadata at create time and compared by deep equality on every
// resume; frames are validated against it on append. The TOML descriptor
// loader turns a feature/source configuration file into a Schema plus the
// name of the frame source that produces conforming frames.
package schema
