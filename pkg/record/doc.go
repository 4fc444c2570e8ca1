// Package record models the data returned by the remote API as a closed set
// of value types (Null, Bool, Number, String, Seq, Map), reads and writes
// them as one compact JSON document per line, and derives the canonical key
// used for deduplication.
package record
