// Package storage defines the ChatStore contract and the sentinel errors
// shared by its implementations in the memory, postgres and sqlite
// subpackages.
package storage
