package dmm

import (
	"unsafe"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
)

// RecordArray is a disk-backed array of T. Records are raw memory, so T
// should not contain pointers, slices, strings, maps or interfaces.
//
// Indexing past the current size grows the size, like appending to a
// vector. Pointers returned by At are only valid until the next access
// through the same array, since that access may evict the window.
type RecordArray[T any] struct {
	*DiskArray
}

func recordSize[T any]() int {
	var zero T
	n := int(unsafe.Sizeof(zero))
	must.Truef(n > 0, "dmm: zero-sized record type %T", zero)
	return n
}

// OpenRecords opens a record array; see Open.
func OpenRecords[T any](path string, mode Mode, create bool, opts Options) (*RecordArray[T], error) {
	a, err := Open(path, recordSize[T](), mode, create, opts)
	if err != nil {
		return nil, err
	}
	return &RecordArray[T]{a}, nil
}

// CreateRecords creates an empty record array; see Create.
func CreateRecords[T any](path string, opts Options) (*RecordArray[T], error) {
	a, err := Create(path, recordSize[T](), opts)
	if err != nil {
		return nil, err
	}
	return &RecordArray[T]{a}, nil
}

// At returns a pointer to record i, growing the size to i+1 if needed.
func (a *RecordArray[T]) At(i int64) (*T, error) {
	size := int64(a.RecordSize())
	p, err := a.Get(i*size, int(size))
	if err != nil {
		return nil, err
	}
	if i >= a.reg.Size() {
		if !a.Writable() {
			log.Debug.Printf("dmm: %s: read-only access to record %d past size %d", a.path, i, a.reg.Size())
		}
		a.reg.SetSize(i + 1)
	}
	return (*T)(unsafe.Pointer(&p[0])), nil
}

// Value returns a copy of record i.
func (a *RecordArray[T]) Value(i int64) (T, error) {
	p, err := a.At(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return *p, nil
}

// Set stores v as record i.
func (a *RecordArray[T]) Set(i int64, v T) error {
	p, err := a.At(i)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Append stores v after the last record.
func (a *RecordArray[T]) Append(v T) error {
	return a.Set(a.Size(), v)
}

// Iter returns an iterator over the records present when Iter is called.
func (a *RecordArray[T]) Iter() *Iterator[T] {
	return &Iterator[T]{a: a, idx: -1, end: a.Size()}
}

// Iterator walks a RecordArray in index order. It holds only the array and
// an index; every Record call goes through the window cache again.
//
//	it := a.Iter()
//	for it.Next() {
//		r := it.Record()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type Iterator[T any] struct {
	a   *RecordArray[T]
	idx int64
	end int64
	cur *T
	err error
}

// Next advances to the next record and reports whether there is one.
func (it *Iterator[T]) Next() bool {
	if it.err != nil || it.idx+1 >= it.end {
		it.cur = nil
		return false
	}
	it.idx++
	it.cur, it.err = it.a.At(it.idx)
	return it.err == nil
}

// Index returns the index of the current record.
func (it *Iterator[T]) Index() int64 { return it.idx }

// Record returns the current record. The pointer is valid until the next
// call to Next.
func (it *Iterator[T]) Record() *T { return it.cur }

// Err returns the error, if any, that stopped the iteration.
func (it *Iterator[T]) Err() error { return it.err }
