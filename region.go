package dmm

import (
	"fmt"
	"os"

	"github.com/grailbio/base/errors"
	"golang.org/x/sys/unix"
)

// pageSize adalah ukuran halaman OS; offset mmap harus kelipatannya.
var pageSize = unix.Getpagesize()

// MappedRegion membungkus satu memory-mapping atas rentang byte sebuah file.
//
// Region memiliki mapping-nya sendiri dan, bila ownsFile bernilai true, juga
// descriptor file-nya. Close melepas keduanya dan aman dipanggil berulang.
type MappedRegion struct {
	file     *os.File
	ownsFile bool
	data     []byte
	offset   int64
	name     string
}

// OpenRegion membuka path lalu memetakan length byte mulai dari offset.
// Length negatif berarti sampai akhir file. Region yang dihasilkan memiliki
// file tersebut.
func OpenRegion(path string, length int, offset int64, mode Mode) (*MappedRegion, error) {
	f, err := os.OpenFile(path, mode.openFlags(), 0o644)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("dmm: open %s", path))
	}
	if length < 0 {
		var st unix.Stat_t
		if err := unix.Fstat(int(f.Fd()), &st); err != nil {
			f.Close()
			return nil, errors.E(err, fmt.Sprintf("dmm: stat %s", path))
		}
		length = int(st.Size - offset)
	}
	r, err := mapRegion(f, length, offset, mode.prot(), unix.MAP_SHARED, true)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// mapRegion membuat mapping baru atas f. File yang terlalu kecil diperbesar
// bila mapping writable; mapping read-only tidak pernah memperbesar file.
// Bila gagal dan ownsFile bernilai true, f ditutup.
func mapRegion(f *os.File, length int, offset int64, prot, flags int, ownsFile bool) (*MappedRegion, error) {
	r := &MappedRegion{file: f, ownsFile: ownsFile, offset: offset, name: f.Name()}
	if offset < 0 || offset%int64(pageSize) != 0 {
		r.Close()
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("dmm: map %s: offset %d is not a multiple of the page size (%d)", r.name, offset, pageSize))
	}
	if length <= 0 {
		r.Close()
		return nil, errors.E(errors.Invalid, fmt.Sprintf("dmm: map %s: invalid length %d", r.name, length))
	}

	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		r.Close()
		return nil, errors.E(err, fmt.Sprintf("dmm: stat %s", r.name))
	}
	if need := offset + int64(length); st.Size < need {
		if prot&unix.PROT_WRITE == 0 {
			r.Close()
			return nil, errors.E(errors.NotAllowed,
				fmt.Sprintf("dmm: map %s: read-only file has %d bytes, %d requested", r.name, st.Size, need))
		}
		// perbesar file dengan menulis satu byte di posisi terakhir
		if _, err := f.WriteAt([]byte{0}, need-1); err != nil {
			r.Close()
			return nil, errors.E(err, fmt.Sprintf("dmm: extend %s to %d bytes", r.name, need))
		}
	}

	data, err := unix.Mmap(int(f.Fd()), offset, length, prot, flags)
	if err != nil {
		r.Close()
		return nil, errors.E(err, fmt.Sprintf("dmm: mmap %s (length=%d, offset=%d)", r.name, length, offset))
	}
	r.data = data
	return r, nil
}

// Bytes mengembalikan memori yang dipetakan. Slice tidak valid lagi setelah Close.
func (r *MappedRegion) Bytes() []byte { return r.data }

// Len returns the mapped length in bytes.
func (r *MappedRegion) Len() int { return len(r.data) }

// Offset returns the file offset of the first mapped byte.
func (r *MappedRegion) Offset() int64 { return r.offset }

// Sync memaksa halaman kotor ditulis ke disk secara sinkron.
func (r *MappedRegion) Sync() error {
	if r.data == nil {
		return errors.E(errors.Invalid, fmt.Sprintf("dmm: sync %s: no active mapping", r.name))
	}
	if err := unix.Msync(r.data, unix.MS_SYNC); err != nil {
		return errors.E(err, fmt.Sprintf("dmm: msync %s", r.name))
	}
	return nil
}

// Close melepas mapping dan menutup file bila dimiliki region.
func (r *MappedRegion) Close() error {
	var firstErr error
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil {
			firstErr = errors.E(err, fmt.Sprintf("dmm: munmap %s", r.name))
		}
		r.data = nil
	}
	if r.ownsFile && r.file != nil {
		if err := r.file.Close(); err != nil && firstErr == nil {
			firstErr = errors.E(err, fmt.Sprintf("dmm: close %s", r.name))
		}
	}
	r.file = nil
	return firstErr
}
