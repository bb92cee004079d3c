package bench_test

import (
	"database/sql"
	"math/rand"
	"testing"

	dmm "github.com/luhtfiimanal/go-dmm"
	_ "modernc.org/sqlite"
)

// prepareTestStores membuat array dan sqlite berisi 'total' record. Array
// memakai satu blok sebesar mungkin agar pembacaan 10 record tidak pernah
// menyeberang file.
func prepareTestStores(b *testing.B, total int64) (*dmm.DiskArray, *sql.DB) {
	arr := newArray(b, 0)

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		b.Fatalf("open sqlite: %v", err)
	}
	_, _ = db.Exec(`CREATE TABLE tbl (id INTEGER PRIMARY KEY, a TEXT, b INTEGER, c TEXT, d INTEGER);`)

	for i := int64(1); i <= total; i++ {
		r := randomRow(i)
		if err := writeRow(arr, r); err != nil {
			b.Fatalf("array write: %v", err)
		}
		if _, err := db.Exec(`INSERT INTO tbl (id,a,b,c,d) VALUES (?,?,?,?,?)`, r.ID, r.A, r.B, r.C, r.D); err != nil {
			b.Fatalf("sqlite insert: %v", err)
		}
	}
	arr.SetSize(total)
	if err := arr.Sync(); err != nil {
		b.Fatalf("sync: %v", err)
	}
	return arr, db
}

// BenchmarkReadSeq10 membaca 10 record berurutan per iterasi.
func BenchmarkReadSeq10(b *testing.B) {
	total := int64(b.N*10 + 10)
	arr, db := prepareTestStores(b, total)
	defer arr.Close()
	defer db.Close()

	b.Run("dmm", func(bb *testing.B) {
		for i := 0; i < bb.N; i++ {
			id := int64((i*10)%int(total-9) + 1)
			if _, err := arr.Get((id-1)*recordSize, 10*recordSize); err != nil {
				bb.Fatalf("read: %v", err)
			}
		}
	})

	b.Run("sqlite", func(bb *testing.B) {
		for i := 0; i < bb.N; i++ {
			id := int64((i*10)%int(total-9) + 1)
			for j := int64(0); j < 10; j++ {
				row := db.QueryRow(`SELECT id FROM tbl WHERE id=?`, id+j)
				var tmp int64
				if err := row.Scan(&tmp); err != nil {
					bb.Fatalf("read sqlite: %v", err)
				}
			}
		}
	})
}

// BenchmarkReadRandom membaca record acak per iterasi.
func BenchmarkReadRandom(b *testing.B) {
	total := int64(b.N) * 2
	if total < 1000 {
		total = 1000
	}
	arr, db := prepareTestStores(b, total)
	defer arr.Close()
	defer db.Close()

	indexRand := rand.New(rand.NewSource(42))

	b.Run("dmm", func(bb *testing.B) {
		for i := 0; i < bb.N; i++ {
			id := indexRand.Int63n(total) + 1
			if _, err := readRow(arr, id); err != nil {
				bb.Fatalf("array read: %v", err)
			}
		}
	})

	b.Run("sqlite", func(bb *testing.B) {
		for i := 0; i < bb.N; i++ {
			id := indexRand.Int63n(total) + 1
			row := db.QueryRow(`SELECT id FROM tbl WHERE id=?`, id)
			var tmp int64
			if err := row.Scan(&tmp); err != nil {
				bb.Fatalf("sqlite read: %v", err)
			}
		}
	})
}
