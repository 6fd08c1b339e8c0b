// Package chunker cuts document text into overlapping pieces for embedding
// and extraction.
//
// Four strategies are supported, selected via core.ChunkStrategy:
//
//   - Recursive (the default): hierarchical separators from paragraphs down
//     to sentences, words, and finally characters
//   - Semantic: sentence-boundary grouping via sentence-level separators
//   - Paragraph: keeps paragraphs together where possible
//   - Fixed: raw fixed-size windows
//
// Every piece carries its rune span in the source text so chunks can be
// traced back to their origin. Document-level chunk parameters override the
// knowledge base defaults; see ForDocument.
package chunker
