// Package dmm implements the Disk Memory Model: an array of fixed-size
// records that may be larger than memory or than a single file. The logical
// address space is split over several backing files ("blocks") and accessed
// through a bounded pool of memory-mapped windows with LRU eviction.
//
// The library is organised into several files for clarity:
//
//	options.go     – configuration struct, defaults & access modes
//	region.go      – MappedRegion, one mmap over a file range
//	block.go       – block representation & file naming
//	registry.go    – the ordered block set, creation & auto-extension
//	descriptor.go  – saving/loading the block layout descriptor
//	window.go      – window cache with LRU eviction
//	array.go       – DiskArray constructors & Get
//	io.go          – copying record read/write & bulk variants
//	flush_close.go – sync, truncate & close
//	records.go     – typed RecordArray and its iterator
//	stats.go       – window statistics & accessors
//
// Errors carry github.com/grailbio/base/errors kinds: errors.NotExist for an
// offset outside all blocks of a set that does not auto-extend (and for a
// missing set in Open), errors.NotAllowed for attempts to read past the end
// of, or extend, read-only files, errors.Integrity for malformed
// descriptors and errors.Invalid for bad arguments. Requests straddling two
// files are programming errors and panic.
package dmm
