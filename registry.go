package dmm

import (
	"context"
	"fmt"

	"github.com/google/btree"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
)

// Registry (a "DMM set") owns the ordered blocks that together form one
// logical record array, together with the array-level metadata that is
// persisted in the descriptor file.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	prefix        string
	recordSize    int
	size          int64 // in records
	maxFileLength int64
	mode          Mode

	autoExtend   bool
	autoBlockLen int64 // in records
	autoOffset   int64 // in bytes

	blocks *btree.BTree
}

// NewRegistry returns an empty registry for records of recordSize bytes.
// A recordSize of 0 adopts the record size of the first loaded descriptor.
func NewRegistry(recordSize int) *Registry {
	must.Truef(recordSize >= 0, "dmm: negative record size %d", recordSize)
	r := &Registry{
		recordSize:    recordSize,
		maxFileLength: DefaultMaxFileLength,
		mode:          ReadWrite,
		blocks:        btree.New(8),
	}
	if recordSize > 0 {
		r.autoBlockLen = r.maxFileLength / int64(recordSize)
	}
	return r
}

// SetMaxFileLength sets the cap, in bytes, on the size of a backing file.
func (r *Registry) SetMaxFileLength(n int64) {
	must.Truef(n > 0, "dmm: invalid maximum file length %d", n)
	r.maxFileLength = n
}

// SetMode sets the mode in which backing files are opened. Read-only
// registries never auto-extend.
func (r *Registry) SetMode(m Mode) { r.mode = m }

// Prefix returns the prefix used to name synthesized block files.
func (r *Registry) Prefix() string { return r.prefix }

// RecordSize returns the size of one record in bytes.
func (r *Registry) RecordSize() int { return r.recordSize }

// AutoExtend reports whether the registry grows on demand and, if so, the
// length (records) and file offset (bytes) of blocks it creates.
func (r *Registry) AutoExtend() (enabled bool, blockLen, offset int64) {
	return r.autoExtend, r.autoBlockLen, r.autoOffset
}

// Len returns the number of blocks.
func (r *Registry) Len() int { return r.blocks.Len() }

// Blocks returns the blocks ordered by Begin.
func (r *Registry) Blocks() []*Block {
	blocks := make([]*Block, 0, r.blocks.Len())
	r.blocks.Ascend(func(i btree.Item) bool {
		blocks = append(blocks, i.(*Block))
		return true
	})
	return blocks
}

// Size returns the number of valid records.
func (r *Registry) Size() int64 { return r.size }

// SetSize sets the number of valid records. Setting it past the capacity is a
// programming error.
func (r *Registry) SetSize(n int64) {
	must.Truef(n >= 0 && n <= r.Capacity(), "dmm: size %d exceeds capacity %d", n, r.Capacity())
	r.size = n
}

// Capacity returns the number of records addressable up to the end of the
// last block.
func (r *Registry) Capacity() int64 {
	last := r.last()
	if last == nil || r.recordSize == 0 {
		return 0
	}
	return last.End() / int64(r.recordSize)
}

func (r *Registry) last() *Block {
	if m := r.blocks.Max(); m != nil {
		return m.(*Block)
	}
	return nil
}

func (r *Registry) insert(b *Block) *Block {
	r.blocks.ReplaceOrInsert(b)
	return b
}

// AddBlock appends a block of length records right after the current
// capacity. The data starts offset bytes into the file. A length <= 0 uses
// as many records as fit into a maximum-sized file. An empty path is
// synthesized from the prefix and the block's record range.
func (r *Registry) AddBlock(length, offset int64, path string) (*Block, error) {
	if r.recordSize <= 0 {
		return nil, errors.E(errors.Invalid, "dmm: add block: record size is not set")
	}
	if offset < 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("dmm: add block: negative offset %d", offset))
	}
	if length <= 0 {
		length = (r.maxFileLength - offset) / int64(r.recordSize)
		if length <= 0 {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("dmm: add block: offset %d leaves no room for a record in a %d byte file", offset, r.maxFileLength))
		}
	}
	var begin int64
	if last := r.last(); last != nil {
		begin = last.End()
	}
	b := &Block{Begin: begin, Path: path, FileOffset: offset, Length: length * int64(r.recordSize)}
	if b.Path == "" {
		if r.prefix == "" {
			return nil, errors.E(errors.Invalid, "dmm: add block: unnamed blocks need a named set")
		}
		b.Path = blockPath(r.prefix, b.Begin, b.Length, r.recordSize)
	}
	return r.insert(b), nil
}

// Create resets the registry, deleting any files of the previous set. With
// totalLength <= 0 the set starts empty and auto-extends using blocks of
// blockLength records starting offset bytes into their files; otherwise
// totalLength records are partitioned eagerly into blocks of blockLength
// records (the last one may be shorter). A blockLength < 1 uses as many
// records as fit into a maximum-sized file.
func (r *Registry) Create(prefix string, totalLength, blockLength, offset int64) error {
	if prefix == "" {
		return errors.E(errors.Invalid, "dmm: create: empty prefix")
	}
	if r.recordSize <= 0 {
		return errors.E(errors.Invalid, "dmm: create: record size is not set")
	}
	if offset < 0 || offset >= r.maxFileLength {
		return errors.E(errors.Invalid, fmt.Sprintf("dmm: create: invalid offset %d", offset))
	}
	if blockLength < 1 {
		blockLength = (r.maxFileLength - offset) / int64(r.recordSize)
		if blockLength <= 0 {
			return errors.E(errors.Invalid,
				fmt.Sprintf("dmm: create: offset %d leaves no room for a record in a %d byte file", offset, r.maxFileLength))
		}
	}
	if err := r.Truncate(); err != nil {
		return err
	}
	r.prefix = prefix
	r.autoExtend = totalLength <= 0
	if r.autoExtend {
		r.autoBlockLen = blockLength
		r.autoOffset = offset
		return nil
	}
	for totalLength > 0 {
		if totalLength < blockLength {
			blockLength = totalLength
		}
		if _, err := r.AddBlock(blockLength, offset, ""); err != nil {
			return err
		}
		totalLength -= blockLength
	}
	return nil
}

// FindBlock returns the block covering the logical byte offset off. When no
// block covers it and the registry auto-extends, a new block is created and
// wasNew is true. Otherwise an error of kind errors.NotExist is returned.
func (r *Registry) FindBlock(off int64) (b *Block, wasNew bool, err error) {
	if off < 0 {
		return nil, false, errors.E(errors.Invalid, fmt.Sprintf("dmm: negative offset %d", off))
	}
	var before, after *Block
	r.blocks.DescendLessOrEqual(&Block{Begin: off}, func(i btree.Item) bool {
		before = i.(*Block)
		return false
	})
	if before != nil && before.Contains(off) {
		return before, false, nil
	}
	r.blocks.AscendGreaterOrEqual(&Block{Begin: off + 1}, func(i btree.Item) bool {
		after = i.(*Block)
		return false
	})
	if !r.autoExtend || !r.mode.Writable() {
		return nil, false, errors.E(errors.NotExist,
			fmt.Sprintf("dmm: offset %d (record %d) not in range and the set does not auto-extend", off, r.recordIndex(off)))
	}
	return r.autoAddBlock(off, before, after), true, nil
}

func (r *Registry) recordIndex(off int64) int64 {
	if r.recordSize == 0 {
		return 0
	}
	return off / int64(r.recordSize)
}

// autoAddBlock fills the gap between before and after when it is no larger
// than an auto block; otherwise it creates the auto-block-sized cell that
// contains off, clipped to its neighbours.
func (r *Registry) autoAddBlock(off int64, before, after *Block) *Block {
	cell := r.autoBlockLen * int64(r.recordSize)
	b := &Block{FileOffset: r.autoOffset}
	if before != nil && after != nil && after.Begin-before.End() <= cell {
		b.Begin = before.End()
		b.Length = after.Begin - b.Begin
	} else {
		b.Begin = off / cell * cell
		end := b.Begin + cell
		if before != nil && b.Begin < before.End() {
			b.Begin = before.End()
		}
		if after != nil && end > after.Begin {
			end = after.Begin
		}
		b.Length = end - b.Begin
	}
	must.Truef(b.Contains(off), "dmm: auto block [%d, %d) does not contain %d", b.Begin, b.End(), off)
	b.Path = blockPath(r.prefix, b.Begin, b.Length, r.recordSize)
	log.Debug.Printf("dmm: auto-extended %s with block %s [%d, %d)", r.prefix, b.Path, b.Begin, b.End())
	return r.insert(b)
}

// dropBlock removes a block returned as new by FindBlock whose first window
// could not be opened.
func (r *Registry) dropBlock(b *Block) {
	if err := b.closeFile(); err != nil {
		log.Error.Printf("dmm: drop block %s: %v", b.Path, err)
	}
	r.blocks.Delete(b)
	log.Debug.Printf("dmm: dropped block %s [%d, %d)", b.Path, b.Begin, b.End())
}

// Truncate closes every backing file, removes it from disk and clears the
// blocks and size. The prefix and auto-extension parameters are kept.
func (r *Registry) Truncate() error {
	firstErr := r.closeFiles()
	ctx := context.Background()
	for _, b := range r.Blocks() {
		if err := file.Remove(ctx, b.Path); err != nil && !isNotExist(err) {
			log.Error.Printf("dmm: remove %s: %v", b.Path, err)
		}
	}
	r.reset()
	return firstErr
}

// Close closes every backing file and clears the blocks and size, leaving
// the registry ready for the next Load.
func (r *Registry) Close() error {
	err := r.closeFiles()
	r.reset()
	return err
}

func (r *Registry) reset() {
	r.blocks = btree.New(8)
	r.size = 0
}

func (r *Registry) closeFiles() error {
	var firstErr error
	for _, b := range r.Blocks() {
		if err := b.closeFile(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
