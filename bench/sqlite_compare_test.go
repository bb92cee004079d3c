package bench_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	dmm "github.com/luhtfiimanal/go-dmm"
	_ "modernc.org/sqlite"
)

type testRow struct {
	ID int64
	A  string // ascii, fixed 16 bytes
	B  int64
	C  string // ascii, fixed 16 bytes
	D  int64
}

const (
	asciiLen   = 16
	int64Bytes = 8
	recordSize = asciiLen*2 + int64Bytes*2 // 48 bytes
)

// encodeRow writes row into a fixed-length record following layout:
// A[16] | B[8] | C[16] | D[8]
func encodeRow(buf []byte, r testRow) {
	copy(buf[0:asciiLen], []byte(r.A))
	binary.LittleEndian.PutUint64(buf[asciiLen:asciiLen+8], uint64(r.B))
	copy(buf[asciiLen+8:asciiLen+8+asciiLen], []byte(r.C))
	binary.LittleEndian.PutUint64(buf[asciiLen+8+asciiLen:], uint64(r.D))
}

// decodeRow converts bytes back to struct (helper for verification)
func decodeRow(id int64, b []byte) testRow {
	r := testRow{ID: id}
	r.A = string(bytes.TrimRight(b[0:asciiLen], "\x00"))
	r.B = int64(binary.LittleEndian.Uint64(b[asciiLen : asciiLen+8]))
	r.C = string(bytes.TrimRight(b[asciiLen+8:asciiLen+8+asciiLen], "\x00"))
	r.D = int64(binary.LittleEndian.Uint64(b[asciiLen+8+asciiLen:]))
	return r
}

func randomASCII(n int) string {
	letters := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

func randomRow(id int64) testRow {
	return testRow{
		ID: id,
		A:  randomASCII(asciiLen),
		B:  rand.Int63(),
		C:  randomASCII(asciiLen),
		D:  rand.Int63(),
	}
}

// newArray membuat DiskArray auto-extend di direktori sementara.
func newArray(tb testing.TB, blockLen int64) *dmm.DiskArray {
	tb.Helper()
	tmpDir, err := os.MkdirTemp("", "dmmbench")
	if err != nil {
		tb.Fatalf("temp dir: %v", err)
	}
	tb.Cleanup(func() { os.RemoveAll(tmpDir) })
	opts := dmm.DefaultOptions()
	opts.BlockLength = blockLen
	a, err := dmm.Create(filepath.Join(tmpDir, "bench.dmm"), recordSize, opts)
	if err != nil {
		tb.Fatalf("create array: %v", err)
	}
	return a
}

// writeRow stores row id (1-based) as record id-1.
func writeRow(a *dmm.DiskArray, r testRow) error {
	buf, err := a.Get((r.ID-1)*recordSize, recordSize)
	if err != nil {
		return err
	}
	encodeRow(buf, r)
	return nil
}

func readRow(a *dmm.DiskArray, id int64) (testRow, error) {
	buf, err := a.Get((id-1)*recordSize, recordSize)
	if err != nil {
		return testRow{}, err
	}
	return decodeRow(id, buf), nil
}

// TestCompareWithSQLite inserts records into both a DiskArray and SQLite and validates equality.
func TestCompareWithSQLite(t *testing.T) {
	rand.Seed(time.Now().UnixNano())

	const total = 1000

	arr := newArray(t, 100)
	defer arr.Close()

	// --- Prepare SQLite (in-memory DB)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE tbl (id INTEGER PRIMARY KEY, a TEXT, b INTEGER, c TEXT, d INTEGER);`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	stmt, err := db.PrepareContext(ctx, `INSERT INTO tbl (id, a, b, c, d) VALUES (?, ?, ?, ?, ?);`)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer stmt.Close()

	// Insert data into both stores
	for i := int64(1); i <= total; i++ {
		r := randomRow(i)
		if err := writeRow(arr, r); err != nil {
			t.Fatalf("array write %d: %v", i, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.A, r.B, r.C, r.D); err != nil {
			t.Fatalf("sqlite insert %d: %v", i, err)
		}
	}
	arr.SetSize(total)
	if err := arr.Sync(); err != nil {
		t.Fatalf("sync array: %v", err)
	}

	// Validate random subset
	for i := 0; i < 100; i++ {
		idx := int64(rand.Intn(total) + 1)

		rc, err := readRow(arr, idx)
		if err != nil {
			t.Fatalf("array read %d: %v", idx, err)
		}

		var sq testRow
		row := db.QueryRowContext(ctx, `SELECT id, a, b, c, d FROM tbl WHERE id=?;`, idx)
		if err := row.Scan(&sq.ID, &sq.A, &sq.B, &sq.C, &sq.D); err != nil {
			t.Fatalf("sqlite read %d: %v", idx, err)
		}

		if rc != sq {
			t.Fatalf("mismatch for id %d: array=%+v sqlite=%+v", idx, rc, sq)
		}
	}
}

// BenchmarkWrite compares write throughput between a DiskArray and sqlite.
func BenchmarkWrite(b *testing.B) {
	rand.Seed(42)

	b.Run("dmm", func(bb *testing.B) {
		arr := newArray(bb, 4096)
		defer arr.Close()

		rowBuf := make([]testRow, bb.N)
		for i := range rowBuf {
			rowBuf[i] = randomRow(int64(i + 1))
		}
		bb.ResetTimer()
		for i := 0; i < bb.N; i++ {
			if err := writeRow(arr, rowBuf[i]); err != nil {
				bb.Fatalf("write: %v", err)
			}
		}
	})

	b.Run("sqlite", func(bb *testing.B) {
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			bb.Fatalf("open sqlite: %v", err)
		}
		defer db.Close()
		_, _ = db.Exec(`CREATE TABLE tbl (id INTEGER PRIMARY KEY, a TEXT, b INTEGER, c TEXT, d INTEGER);`)
		stmt, _ := db.Prepare(`INSERT INTO tbl (id, a, b, c, d) VALUES (?, ?, ?, ?, ?);`)
		rowBuf := make([]testRow, bb.N)
		for i := range rowBuf {
			rowBuf[i] = randomRow(int64(i + 1))
		}
		bb.ResetTimer()
		for i := 0; i < bb.N; i++ {
			r := rowBuf[i]
			if _, err := stmt.Exec(r.ID, r.A, r.B, r.C, r.D); err != nil {
				bb.Fatalf("insert: %v", err)
			}
		}
	})
}
