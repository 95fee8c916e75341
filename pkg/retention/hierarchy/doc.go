// Package hierarchy decides which items may acquire a retention of their own.
//
// An item under active retention covers its whole subtree: no descendant may
// get an independent retention until the covering one is removed or
// processed. CheckRetentionBatch classifies a set of candidate paths inside
// one group folder so that a caller can disable "set retention" on covered
// items and name the item that covers them.
package hierarchy
