// Package kernel implements the pure selection step used by a
// reservoir to decide, given its current retained items and a batch of
// new arrivals, which items survive ingestion.
//
// The kernel never mutates a reservoir's arrays directly; it writes its
// decision into a scratch workspace of [Entry] values that the caller
// then scans to rebuild its own retained arrays and diff record.
package kernel
