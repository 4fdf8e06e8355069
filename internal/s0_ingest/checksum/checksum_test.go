package checksum

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestDigest(t *testing.T) {
	d, err := Digest(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", d)

	_, err = Digest(failingReader{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrSourceUnreadable))
}

func openDuckDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE ingest_checksums (
		source_id VARCHAR PRIMARY KEY,
		digest VARCHAR NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	)`)
	require.NoError(t, err)
	return db
}

func stores(t *testing.T) map[string]contracts.ChecksumStore {
	return map[string]contracts.ChecksumStore{
		"memory": NewMemoryStore(),
		"duckdb": NewDuckDBStore(openDuckDB(t)),
	}
}

func TestShouldIngestGate(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			content := []byte(`{"agencies":[]}`)

			// Never recorded → ingest
			first, err := store.ShouldIngest(ctx, "agencies", bytes.NewReader(content))
			require.NoError(t, err)
			assert.True(t, first.Ingest)
			assert.Empty(t, first.Previous)
			assert.Len(t, first.Digest, 64)

			require.NoError(t, store.Record(ctx, "agencies", first.Digest))

			// Byte-identical → skip
			second, err := store.ShouldIngest(ctx, "agencies", bytes.NewReader(content))
			require.NoError(t, err)
			assert.False(t, second.Ingest)
			assert.Equal(t, first.Digest, second.Previous)

			// Changed bytes → ingest
			third, err := store.ShouldIngest(ctx, "agencies", bytes.NewReader(append(content, '\n')))
			require.NoError(t, err)
			assert.True(t, third.Ingest)
			assert.NotEqual(t, first.Digest, third.Digest)

			// Other source ids are independent
			other, err := store.ShouldIngest(ctx, "corrections", bytes.NewReader(content))
			require.NoError(t, err)
			assert.True(t, other.Ingest)
		})
	}
}

func TestRecordLastWriteWins(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Record(ctx, "corrections", "aaa"))
			require.NoError(t, store.Record(ctx, "corrections", "bbb"))

			digests, err := store.Digests(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"corrections": "bbb"}, digests)

			assert.Error(t, store.Record(ctx, "", "ccc"))
			assert.Error(t, store.Record(ctx, "corrections", ""))
		})
	}
}

func TestShouldIngestUnreadable(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.ShouldIngest(context.Background(), "agencies", failingReader{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrSourceUnreadable))

	digests, err := store.Digests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, digests)
}
