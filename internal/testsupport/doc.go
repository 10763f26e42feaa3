// Package testsupport provides shared fixtures for pipeline tests: temp-dir
// configs, a canonical test schema, snapshot builders, and a stub encoder.
package testsupport
