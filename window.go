package dmm

import (
	"container/list"
	"fmt"

	"github.com/google/btree"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
	"golang.org/x/sys/unix"
)

// window adalah satu mapping aktif atas sebagian ruang alamat logis.
//
// base adalah alamat logis byte pertama mapping (bisa lebih kecil dari begin
// karena penyelarasan ke ukuran halaman); [begin, end) adalah rentang logis
// yang sah, selalu di dalam satu blok.
type window struct {
	begin, end int64
	base       int64
	block      *Block
	region     *MappedRegion
	elem       *list.Element
}

func (w *window) Less(than btree.Item) bool {
	return w.begin < than.(*window).begin
}

func (w *window) covers(begin, end int64) bool {
	return w.begin <= begin && end <= w.end
}

// bytes mengembalikan memori untuk rentang logis [begin, end). Kapasitas
// slice dibatasi agar append tidak menimpa record berikutnya.
func (w *window) bytes(begin, end int64) []byte {
	return w.region.Bytes()[begin-w.base : end-w.base : end-w.base]
}

// WindowInfo describes an open window.
type WindowInfo struct {
	Begin, End int64  // valid logical byte range
	FileOffset int64  // file offset of the first mapped byte; page aligned
	Length     int    // mapped length in bytes
	Path       string // backing file
}

// windowCache menyimpan sejumlah terbatas window terbuka dengan kebijakan
// LRU: queue.Front() adalah yang paling lama tidak dipakai.
type windowCache struct {
	reg        *Registry
	mode       Mode
	maxWindows int
	windowSize int64

	open  *btree.BTree // *window, urut menurut begin
	queue *list.List   // *window, LRU di depan

	// persist dipanggil setelah blok baru dibuat oleh autoextend.
	persist func() error

	stats Stats
}

func newWindowCache(reg *Registry, mode Mode, opts Options) *windowCache {
	return &windowCache{
		reg:        reg,
		mode:       mode,
		maxWindows: opts.MaxWindows,
		windowSize: int64(opts.WindowSize),
		open:       btree.New(8),
		queue:      list.New(),
	}
}

// find mengembalikan window yang mencakup [begin, end), membuka window baru
// (dan mengusir yang paling lama) bila perlu. Rentang kosong diperbolehkan.
func (c *windowCache) find(begin, end int64) (*window, error) {
	if begin < 0 || end < begin {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("dmm: invalid range [%d, %d)", begin, end))
	}
	var w *window
	c.open.DescendLessOrEqual(&window{begin: begin}, func(i btree.Item) bool {
		w = i.(*window)
		return false
	})
	if w != nil && w.covers(begin, end) {
		c.stats.Hits++
		c.queue.MoveToBack(w.elem)
		return w, nil
	}
	c.stats.Misses++
	return c.openWindow(begin, end)
}

// openWindow memetakan window baru untuk [begin, end). Bila gagal, cache dan
// registry kembali ke keadaan semula: blok yang baru dibuat dibuang dan tidak
// ada window yang diusir.
func (c *windowCache) openWindow(begin, end int64) (_ *window, err error) {
	b, wasNew, err := c.reg.FindBlock(begin)
	if err != nil {
		return nil, err
	}
	var persisted bool
	if wasNew {
		defer func() {
			if err == nil {
				return
			}
			c.reg.dropBlock(b)
			if persisted {
				if perr := c.persist(); perr != nil {
					log.Error.Printf("dmm: drop block %s: %v", b.Path, perr)
				}
			}
		}()
	}
	f, err := b.openFile(c.mode)
	if err != nil {
		return nil, err
	}

	// Pusatkan window: mulai windowSize sebelum offset yang diminta, atau di
	// awal blok bila offset lebih dekat ke sana.
	start := b.Begin
	if begin-b.Begin >= c.windowSize {
		start = begin - c.windowSize
	}
	length := min(b.maxLen(begin), c.windowSize) + (begin - start)
	fileOffset := b.offset(start)

	// offset mmap harus kelipatan ukuran halaman
	shift := fileOffset % int64(pageSize)
	base := start - shift
	fileOffset -= shift
	length += shift

	validEnd := start + length - shift
	if !c.mode.Writable() {
		var st unix.Stat_t
		if err := unix.Fstat(int(f.Fd()), &st); err != nil {
			return nil, errors.E(err, fmt.Sprintf("dmm: stat %s", b.Path))
		}
		if st.Size < fileOffset+length {
			length = st.Size - fileOffset
			validEnd = base + length
		}
		if length <= 0 || validEnd < end {
			return nil, errors.E(errors.NotAllowed,
				fmt.Sprintf("dmm: range [%d, %d) lies past the end of read-only file %s (%d bytes)", begin, end, b.Path, st.Size))
		}
	}
	w := &window{begin: start, end: validEnd, base: base, block: b}
	must.Truef(w.covers(begin, end),
		"dmm: range [%d, %d) does not fit one window [%d, %d) of %s; it spans two files or exceeds the window size", begin, end, w.begin, w.end, b.Path)

	if wasNew && c.persist != nil {
		if err := c.persist(); err != nil {
			return nil, err
		}
		persisted = true
	}

	w.region, err = mapRegion(f, int(length), fileOffset, c.mode.prot(), unix.MAP_SHARED, false)
	if err != nil {
		return nil, err
	}
	// Usir hanya setelah mapping baru berhasil.
	if old := c.open.Get(w); old != nil {
		c.evict(old.(*window))
	} else if c.queue.Len() >= c.maxWindows {
		c.evict(c.queue.Front().Value.(*window))
	}
	w.elem = c.queue.PushBack(w)
	c.open.ReplaceOrInsert(w)
	c.stats.Opens++
	log.Debug.Printf("dmm: open window [%d, %d) %s@%d+%d", w.begin, w.end, b.Path, fileOffset, length)
	return w, nil
}

func (c *windowCache) evict(w *window) {
	c.open.Delete(w)
	c.queue.Remove(w.elem)
	if err := w.region.Close(); err != nil {
		log.Error.Printf("dmm: evict window [%d, %d): %v", w.begin, w.end, err)
	}
	c.stats.Evictions++
	log.Debug.Printf("dmm: evicted window [%d, %d) %s", w.begin, w.end, w.block.Path)
}

// syncAll menulis semua window ke disk; error pertama dikembalikan.
func (c *windowCache) syncAll() error {
	var firstErr error
	for e := c.queue.Front(); e != nil; e = e.Next() {
		if err := e.Value.(*window).region.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// closeAll melepas semua window.
func (c *windowCache) closeAll() error {
	var firstErr error
	for e := c.queue.Front(); e != nil; e = e.Next() {
		if err := e.Value.(*window).region.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.open = btree.New(8)
	c.queue.Init()
	return firstErr
}

// infos mengembalikan daftar window terbuka, urut menurut begin.
func (c *windowCache) infos() []WindowInfo {
	infos := make([]WindowInfo, 0, c.open.Len())
	c.open.Ascend(func(i btree.Item) bool {
		w := i.(*window)
		infos = append(infos, WindowInfo{
			Begin:      w.begin,
			End:        w.end,
			FileOffset: w.region.Offset(),
			Length:     w.region.Len(),
			Path:       w.block.Path,
		})
		return true
	})
	return infos
}
