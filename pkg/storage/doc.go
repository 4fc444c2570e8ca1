// Package storage persists endpoint batches.
//
// Each flush targets <dir>/<endpoint>_<YYYY_MM_DD_HHMMSS>.<ext>, a file of
// one JSON record per line. If the file already exists its records are read
// back, merged with the new batch and deduplicated by canonical key (last
// write wins), and the whole file is replaced through a temporary file and a
// rename. Strings that cannot be written as UTF-8 are replaced rather than
// aborting the write, and such a write is reported as degraded.
//
// Every successful flush appends a line to the action log, <dir>/log.txt.
package storage
