// Package testing provides a test suite that every store.IStore implementation
// must pass. Backends call RunIStoreTests from their own _test.go files with a
// factory producing fresh, empty stores.
package testing
