// Package domain holds the core model types and the interfaces that connect
// the ingestion pipeline, the aggregation engine, and the storage adapters.
// It has no dependencies on any adapter package.
package domain
