// Package ingestion provides the asynchronous document processing pipeline.
//
// The Pipeline type owns a bounded worker pool and runs each submitted
// document through four sequential stages:
//   - Splitting the document text into chunks
//   - Generating embeddings and updating the vector index
//   - Extracting entities and relation triples
//   - Merging the triples into the knowledge graph
//
// Only the chunking stage is fatal; later stages degrade to a partially
// processed document and are logged rather than failing the run.
package ingestion
