package dmm

import (
	"fmt"
	"os"

	"github.com/google/btree"
	"github.com/grailbio/base/errors"
)

// Block adalah satu segmen file fisik yang menampung rentang berurutan dari
// ruang alamat logis.
//
// Begin dan Length dalam byte logis; record ke-i dari blok berada pada byte
// FileOffset + i*recordSize di dalam file Path. Descriptor file dibuka secara
// lazy saat window pertama dipetakan dan ditutup oleh Registry.
type Block struct {
	Begin      int64  // offset logis (byte) awal blok
	Path       string // path file fisik
	FileOffset int64  // offset byte awal data di dalam file
	Length     int64  // panjang data (byte)

	file *os.File
}

// Less orders blocks by their logical begin offset.
func (b *Block) Less(than btree.Item) bool {
	return b.Begin < than.(*Block).Begin
}

// End returns the logical byte offset just past the block.
func (b *Block) End() int64 { return b.Begin + b.Length }

// Contains tells whether the logical byte offset off lies inside the block.
func (b *Block) Contains(off int64) bool { return b.Begin <= off && off < b.End() }

// offset menerjemahkan offset logis ke offset di dalam file fisik.
func (b *Block) offset(off int64) int64 { return b.FileOffset + (off - b.Begin) }

// maxLen adalah sisa byte blok mulai dari offset logis off.
func (b *Block) maxLen(off int64) int64 { return b.Length - (off - b.Begin) }

func (b *Block) openFile(mode Mode) (*os.File, error) {
	if b.file != nil {
		return b.file, nil
	}
	f, err := os.OpenFile(b.Path, mode.openFlags(), 0o644)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("dmm: open block file %s", b.Path))
	}
	b.file = f
	return f, nil
}

func (b *Block) closeFile() error {
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	if err != nil {
		return errors.E(err, fmt.Sprintf("dmm: close block file %s", b.Path))
	}
	return nil
}

// blockPath membuat nama file untuk blok tanpa nama:
// <prefix>.<beginRecord:010d>-<endRecord:010d>.mem
func blockPath(prefix string, begin, length int64, recordSize int) string {
	rs := int64(recordSize)
	return fmt.Sprintf("%s.%010d-%010d.mem", prefix, begin/rs, (begin+length)/rs)
}
