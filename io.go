package dmm

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// record mengembalikan window dan memori untuk record ke-i.
func (a *DiskArray) record(i int64) (*window, []byte, error) {
	if a.closed {
		return nil, nil, errors.E(errors.Invalid, "dmm: access to closed array")
	}
	if i < 0 {
		return nil, nil, errors.E(errors.Invalid, fmt.Sprintf("dmm: negative record index %d", i))
	}
	rs := int64(a.RecordSize())
	begin := i * rs
	w, err := a.cache.find(begin, begin+rs)
	if err != nil {
		return nil, nil, err
	}
	return w, w.bytes(begin, begin+rs), nil
}

// WriteRecord menyalin payload ke record ke-i dan memperbesar size bila
// perlu. Bila flush true, window yang bersangkutan langsung di-msync.
func (a *DiskArray) WriteRecord(i int64, payload []byte, flush bool) error {
	if !a.Writable() {
		return errors.E(errors.NotAllowed, "dmm: write to read-only array "+a.path)
	}
	if len(payload) != a.RecordSize() {
		return errors.E(errors.Invalid,
			fmt.Sprintf("dmm: payload size mismatch: got %d want %d", len(payload), a.RecordSize()))
	}
	w, p, err := a.record(i)
	if err != nil {
		return err
	}
	copy(p, payload)
	if i >= a.reg.Size() {
		a.reg.SetSize(i + 1)
	}
	if flush {
		return w.region.Sync()
	}
	return nil
}

// ReadRecord mengambil salinan record ke-i. Berbeda dengan Get, hasilnya
// tetap valid setelah window diusir.
func (a *DiskArray) ReadRecord(i int64) ([]byte, error) {
	_, p, err := a.record(i)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

// BulkWrite menulis beberapa payload berturut-turut mulai dari record start.
// Hanya window terakhir yang di-flush.
func (a *DiskArray) BulkWrite(start int64, payloads [][]byte, flush bool) error {
	for i, p := range payloads {
		if len(p) != a.RecordSize() {
			return errors.E(errors.Invalid,
				fmt.Sprintf("dmm: payload %d must be exactly %d bytes", i, a.RecordSize()))
		}
	}
	for i, p := range payloads {
		idx := start + int64(i)
		shouldFlush := flush && i == len(payloads)-1
		if err := a.WriteRecord(idx, p, shouldFlush); err != nil {
			return errors.E(err, fmt.Sprintf("dmm: write record %d", idx))
		}
	}
	return nil
}

// BulkRead membaca count record berturut-turut mulai dari record start.
// Rentang harus berada di dalam size.
func (a *DiskArray) BulkRead(start int64, count int) ([][]byte, error) {
	if start < 0 || count < 0 || start+int64(count) > a.Size() {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("dmm: record range [%d, %d) out of bounds (size %d)", start, start+int64(count), a.Size()))
	}
	res := make([][]byte, count)
	for i := range res {
		idx := start + int64(i)
		p, err := a.ReadRecord(idx)
		if err != nil {
			return res, errors.E(err, fmt.Sprintf("dmm: read record %d", idx))
		}
		res[i] = p
	}
	return res, nil
}
