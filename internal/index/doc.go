// Package index provides the two retrieval lookups behind hybrid search:
// a bleve-backed keyword index over sample text and a dense lookup that
// embeds the query and scans stored vectors. Both return scored matches
// tagged with their index kind so the ranker can fuse them.
package index
