package dmm

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// DiskArray menyediakan satu ruang alamat logis di atas sekumpulan file
// (blok) yang diakses melalui window memory-map.
//
// DiskArray tidak aman untuk goroutine: gunakan satu instance per goroutine,
// atau kunci dari luar. Instance yang berbeda atas file yang berbeda aman
// dipakai bersamaan.
type DiskArray struct {
	path  string // descriptor file
	mode  Mode
	opts  Options
	reg   *Registry
	cache *windowCache

	closed bool
}

// Open membuka set DMM yang dideskripsikan oleh file di path. Bila descriptor
// tidak ada, mode writable dan create bernilai true, set baru yang
// auto-extend (atau sesuai opts.TotalLength) dibuat dan langsung disimpan.
// Selain itu error dengan kind errors.NotExist dikembalikan.
func Open(path string, recordSize int, mode Mode, create bool, opts Options) (*DiskArray, error) {
	if recordSize <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("dmm: invalid record size %d", recordSize))
	}
	opts = opts.withDefaults()
	reg := NewRegistry(recordSize)
	reg.SetMaxFileLength(opts.MaxFileLength)
	reg.SetMode(mode)

	a := &DiskArray{path: path, mode: mode, opts: opts, reg: reg}
	a.cache = newWindowCache(reg, mode, opts)
	a.cache.persist = a.Sync

	ok, err := reg.Load(path)
	if err != nil {
		return nil, err
	}
	if ok {
		log.Debug.Printf("dmm: opened %s (%s): %d records in %d blocks", path, mode, reg.Size(), reg.Len())
		return a, nil
	}
	if !create || !mode.Writable() {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("dmm: could not open DMM set %s", path))
	}
	if err := reg.Create(path, opts.TotalLength, opts.BlockLength, opts.BlockOffset); err != nil {
		return nil, err
	}
	if err := a.Sync(); err != nil {
		reg.Close()
		return nil, err
	}
	log.Debug.Printf("dmm: created %s", path)
	return a, nil
}

// Create membuka (atau membuat) set di path dalam mode read-write, menghapus
// seluruh file set lama lalu menyusun ulang blok sesuai opts.
func Create(path string, recordSize int, opts Options) (*DiskArray, error) {
	a, err := Open(path, recordSize, ReadWrite, true, opts)
	if err != nil {
		return nil, err
	}
	if err := a.recreate(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *DiskArray) recreate() error {
	if err := a.cache.closeAll(); err != nil {
		return err
	}
	if err := a.reg.Create(a.path, a.opts.TotalLength, a.opts.BlockLength, a.opts.BlockOffset); err != nil {
		return err
	}
	return a.Sync()
}

// Path returns the descriptor file path.
func (a *DiskArray) Path() string { return a.path }

// Mode returns the access mode.
func (a *DiskArray) Mode() Mode { return a.mode }

// Writable tells whether the array may be modified.
func (a *DiskArray) Writable() bool { return a.mode.Writable() }

// Registry returns the block registry backing the array.
func (a *DiskArray) Registry() *Registry { return a.reg }

// SetSize sets the number of valid records; it panics past the capacity.
func (a *DiskArray) SetSize(n int64) { a.reg.SetSize(n) }

// Get mengembalikan length byte mulai dari offset logis. Slice menunjuk
// langsung ke memori yang dipetakan: penulisan ke slice mengubah file (bila
// writable), dan slice hanya valid sampai window-nya diusir, yaitu sampai
// pemanggilan Get, Sync, Truncate atau Close berikutnya.
//
// Length 0 menghasilkan slice kosong pada offset tersebut (blok tetap
// dicari, dan dibuat bila autoextend). Length negatif menghasilkan
// errors.Invalid. Rentang yang melintasi batas dua file adalah kesalahan
// pemakaian dan menyebabkan panic.
func (a *DiskArray) Get(offset int64, length int) ([]byte, error) {
	if a.closed {
		return nil, errors.E(errors.Invalid, "dmm: get on closed array")
	}
	end := offset + int64(length)
	w, err := a.cache.find(offset, end)
	if err != nil {
		return nil, err
	}
	return w.bytes(offset, end), nil
}
