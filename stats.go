package dmm

// Stats menyimpan statistik window cache.
// HitRatio dalam persentase (0-100).
type Stats struct {
	Hits      uint64 // permintaan yang dilayani window terbuka
	Misses    uint64 // permintaan yang memerlukan window baru
	Opens     uint64 // window yang berhasil dipetakan
	Evictions uint64 // window yang diusir oleh LRU
	HitRatio  float64
}

// Stats mengambil snapshot statistik window.
func (a *DiskArray) Stats() Stats {
	st := a.cache.stats
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRatio = float64(st.Hits) / float64(total) * 100.0
	}
	return st
}

// ResetStats mengatur ulang penghitung statistik.
func (a *DiskArray) ResetStats() {
	a.cache.stats = Stats{}
}

// Windows returns the open windows ordered by logical offset.
func (a *DiskArray) Windows() []WindowInfo { return a.cache.infos() }

// Size mengembalikan jumlah record yang valid.
func (a *DiskArray) Size() int64 { return a.reg.Size() }

// Capacity mengembalikan jumlah record yang dapat dialamatkan.
func (a *DiskArray) Capacity() int64 { return a.reg.Capacity() }

// RecordSize mengembalikan ukuran setiap record (byte).
func (a *DiskArray) RecordSize() int { return a.reg.RecordSize() }

// BlockCount mengembalikan jumlah file fisik di dalam set.
func (a *DiskArray) BlockCount() int { return a.reg.Len() }
