package dmm

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestWriteReadRecord(t *testing.T) {
	const recordSize = 32
	opts := smallWindows(2, pageSize)
	opts.BlockLength = 100
	a, _ := newTestArray(t, recordSize, opts)
	defer a.Close()

	payloads := make([][]byte, 300)
	for i := range payloads {
		payloads[i] = make([]byte, recordSize)
		rand.Read(payloads[i])
		assert.NoError(t, a.WriteRecord(int64(i), payloads[i], i%50 == 0))
	}
	expect.EQ(t, a.Size(), int64(300))

	// copies survive window eviction
	first, err := a.ReadRecord(0)
	assert.NoError(t, err)
	for i := 299; i >= 0; i-- {
		got, err := a.ReadRecord(int64(i))
		assert.NoError(t, err)
		if !bytes.Equal(got, payloads[i]) {
			t.Fatalf("payload mismatch at record %d", i)
		}
	}
	if !bytes.Equal(first, payloads[0]) {
		t.Fatal("copied record changed after eviction")
	}
}

func TestWriteRecordErrors(t *testing.T) {
	a, path := newTestArray(t, 16, DefaultOptions())
	if err := a.WriteRecord(0, make([]byte, 15), false); !errors.Is(errors.Invalid, err) {
		t.Fatalf("expected Invalid for short payload, got %v", err)
	}
	if err := a.WriteRecord(-1, make([]byte, 16), false); !errors.Is(errors.Invalid, err) {
		t.Fatalf("expected Invalid for negative index, got %v", err)
	}
	assert.NoError(t, a.WriteRecord(0, make([]byte, 16), true))
	assert.NoError(t, a.Close())

	ro, err := Open(path, 16, ReadOnly, false, DefaultOptions())
	assert.NoError(t, err)
	defer ro.Close()
	if err := ro.WriteRecord(0, make([]byte, 16), false); !errors.Is(errors.NotAllowed, err) {
		t.Fatalf("expected NotAllowed, got %v", err)
	}
}

func TestBulkWriteRead(t *testing.T) {
	opts := DefaultOptions()
	opts.BlockLength = 2
	a, _ := newTestArray(t, 16, opts)
	defer a.Close()

	payloads := [][]byte{
		[]byte("abcdefghijklmnop"),
		[]byte("qrstuvwxyzABCDEF"),
		[]byte("GHIJKLMNOPQRSTUV"),
	}
	assert.NoError(t, a.BulkWrite(5, payloads, true))
	expect.EQ(t, a.Size(), int64(8))
	expect.EQ(t, a.BlockCount(), 2)

	got, err := a.BulkRead(5, len(payloads))
	assert.NoError(t, err)
	for i := range payloads {
		if !bytes.Equal(got[i], payloads[i]) {
			t.Fatalf("record %d: got %q, want %q", 5+i, got[i], payloads[i])
		}
	}
	if _, err := a.BulkRead(6, 3); !errors.Is(errors.Invalid, err) {
		t.Fatalf("expected Invalid past size, got %v", err)
	}
	bad := [][]byte{make([]byte, 16), make([]byte, 3)}
	if err := a.BulkWrite(0, bad, false); !errors.Is(errors.Invalid, err) {
		t.Fatalf("expected Invalid, got %v", err)
	}
	expect.EQ(t, a.Size(), int64(8))
}
