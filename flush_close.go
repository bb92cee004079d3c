package dmm

import "github.com/grailbio/base/errors"

// Sync memaksa semua window ditulis ke disk dan, bila writable, menyimpan
// descriptor.
func (a *DiskArray) Sync() error {
	if a.closed {
		return errors.E(errors.Invalid, "dmm: sync on closed array")
	}
	firstErr := a.cache.syncAll()
	if a.Writable() {
		if err := a.reg.Save(a.path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Truncate menutup semua window, menghapus semua file blok dari disk dan
// menyimpan keadaan kosong.
func (a *DiskArray) Truncate() error {
	if a.closed {
		return errors.E(errors.Invalid, "dmm: truncate on closed array")
	}
	if !a.Writable() {
		return errors.E(errors.NotAllowed, "dmm: truncate on read-only array "+a.path)
	}
	firstErr := a.cache.closeAll()
	if err := a.reg.Truncate(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.Sync(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Close menulis semua window ke disk, menyimpan descriptor bila writable,
// lalu menutup semua sumber daya (mmap & file). Close aman dipanggil ulang.
func (a *DiskArray) Close() error {
	if a.closed {
		return nil
	}
	firstErr := a.cache.syncAll()
	if err := a.cache.closeAll(); err != nil && firstErr == nil {
		firstErr = err
	}
	if a.Writable() {
		if err := a.reg.Save(a.path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.reg.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	a.closed = true
	return firstErr
}
