// Package reindex rebuilds vector indexes after an embedding model change.
package reindex
