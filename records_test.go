package dmm

import (
	"path/filepath"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

type star struct {
	Idx     int64
	RA, Dec float64
	Mag     float32
	Flags   uint32
}

func newTestRecords[T any](t *testing.T, opts Options) (*RecordArray[T], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.dmm")
	a, err := CreateRecords[T](path, opts)
	if err != nil {
		t.Fatalf("failed to create record array: %v", err)
	}
	return a, path
}

func TestSparseIndexAutoExtends(t *testing.T) {
	opts := DefaultOptions()
	opts.BlockLength = 1000
	a, _ := newTestRecords[int64](t, opts)
	defer a.Close()

	p, err := a.At(5000000)
	assert.NoError(t, err)
	*p = 99
	expect.EQ(t, a.Size(), int64(5000001))
	expect.EQ(t, a.BlockCount(), 1)
	b := a.Registry().Blocks()[0]
	if !b.Contains(5000000 * 8) {
		t.Fatalf("block [%d, %d) does not hold record 5000000", b.Begin, b.End())
	}
	if a.Capacity() < 5000001 {
		t.Fatalf("capacity %d below size", a.Capacity())
	}
	v, err := a.Value(5000000)
	assert.NoError(t, err)
	expect.EQ(t, v, int64(99))
}

func TestAppendIterate(t *testing.T) {
	opts := DefaultOptions()
	opts.BlockLength = 64
	opts.WindowSize = 1024
	opts.MaxWindows = 2
	a, path := newTestRecords[star](t, opts)

	fz := fuzz.NewWithSeed(42).NilChance(0)
	want := make([]star, 500)
	for i := range want {
		fz.Fuzz(&want[i])
		want[i].Idx = int64(i)
		assert.NoError(t, a.Append(want[i]))
	}
	expect.EQ(t, a.Size(), int64(len(want)))
	assert.NoError(t, a.Close())

	ro, err := OpenRecords[star](path, ReadOnly, false, DefaultOptions())
	assert.NoError(t, err)
	defer ro.Close()
	it := ro.Iter()
	n := 0
	for it.Next() {
		r := it.Record()
		if r.Idx != it.Index() || *r != want[n] {
			t.Fatalf("record %d: got %+v, want %+v", it.Index(), *r, want[n])
		}
		n++
	}
	assert.NoError(t, it.Err())
	expect.EQ(t, n, len(want))
}

func TestSetValue(t *testing.T) {
	opts := DefaultOptions()
	opts.TotalLength = 100
	opts.BlockLength = 30
	a, _ := newTestRecords[star](t, opts)
	defer a.Close()

	for _, i := range []int64{0, 29, 30, 99} {
		assert.NoError(t, a.Set(i, star{Idx: i, RA: float64(i) / 10}))
	}
	expect.EQ(t, a.Size(), int64(100))
	v, err := a.Value(30)
	assert.NoError(t, err)
	expect.EQ(t, v.RA, 3.0)
	v, err = a.Value(1)
	assert.NoError(t, err)
	expect.EQ(t, v, star{})

	if err := a.Set(100, star{}); !errors.Is(errors.NotExist, err) {
		t.Fatalf("expected NotExist past a fixed capacity, got %v", err)
	}
}

func TestIterStopsOnError(t *testing.T) {
	a, _ := newTestRecords[int32](t, DefaultOptions())
	defer a.Close()
	assert.NoError(t, a.Set(2, 7))
	it := a.Iter()
	assert.NoError(t, a.Close())
	if it.Next() {
		t.Fatal("expected iteration to stop on a closed array")
	}
	if it.Err() == nil {
		t.Fatal("expected iterator error")
	}
}

func TestZeroSizedRecordPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for a zero-sized record type")
		}
	}()
	CreateRecords[struct{}](filepath.Join(t.TempDir(), "empty.dmm"), DefaultOptions())
}
