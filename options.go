package dmm

import (
	"fmt"
	"os"

	"github.com/grailbio/base/errors"
	"golang.org/x/sys/unix"
)

// Options menyediakan opsi konfigurasi untuk DiskArray.
//
//   - MaxWindows:    jumlah maksimal window (mmap) yang terbuka bersamaan
//   - WindowSize:    ukuran window dalam byte
//   - MaxFileLength: batas ukuran satu file fisik dalam byte
//
// TotalLength, BlockLength dan BlockOffset hanya dipakai saat sebuah set
// baru dibuat (Create atau Open dengan create=true).
// Lihat DefaultOptions() untuk nilai bawaan.
type Options struct {
	MaxWindows    int   // Jumlah window terbuka (default 50)
	WindowSize    int   // Ukuran window dalam byte (default 5 MiB)
	MaxFileLength int64 // Ukuran maksimal file fisik (default 2^31-1)

	TotalLength int64 // Jumlah record awal; <=0 berarti autoextend
	BlockLength int64 // Record per file; <=0 berarti sebanyak muat di MaxFileLength
	BlockOffset int64 // Offset byte awal data di setiap file
}

// DefaultMaxFileLength keeps every file offset within a signed 32-bit range.
const DefaultMaxFileLength = 1<<31 - 1

// DefaultOptions mengembalikan konfigurasi default.
func DefaultOptions() Options {
	return Options{
		MaxWindows:    50,
		WindowSize:    5 * 1024 * 1024,
		MaxFileLength: DefaultMaxFileLength,
		TotalLength:   -1,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxWindows <= 0 {
		o.MaxWindows = def.MaxWindows
	}
	if o.WindowSize <= 0 {
		o.WindowSize = def.WindowSize
	}
	if o.MaxFileLength <= 0 {
		o.MaxFileLength = def.MaxFileLength
	}
	return o
}

// Mode is the access mode of a DiskArray and of the files backing it.
type Mode int

const (
	// ReadOnly never creates, extends or writes files.
	ReadOnly Mode = iota
	// ReadWrite may create blocks and grow the backing files.
	ReadWrite
	// WriteOnly behaves like ReadWrite. Shared mappings need a readable
	// descriptor, so files are still opened O_RDWR.
	WriteOnly
)

// ParseMode parses the short mode strings "r", "rw" and "w".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r":
		return ReadOnly, nil
	case "rw":
		return ReadWrite, nil
	case "w":
		return WriteOnly, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("dmm: invalid mode %q; need one of r, rw, w", s))
}

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "r"
	case ReadWrite:
		return "rw"
	case WriteOnly:
		return "w"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Writable tells whether m allows writes.
func (m Mode) Writable() bool { return m == ReadWrite || m == WriteOnly }

func (m Mode) openFlags() int {
	if m.Writable() {
		return os.O_RDWR | os.O_CREATE
	}
	return os.O_RDONLY
}

func (m Mode) prot() int {
	switch m {
	case ReadWrite:
		return unix.PROT_READ | unix.PROT_WRITE
	case WriteOnly:
		return unix.PROT_WRITE
	}
	return unix.PROT_READ
}
