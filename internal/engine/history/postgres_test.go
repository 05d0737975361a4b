package history

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectPostgresConfigErrors(t *testing.T) {
	ctx := context.Background()

	_, err := ConnectPostgres(ctx, "")
	assert.ErrorContains(t, err, "DATABASE_URL is required")

	_, err = ConnectPostgres(ctx, "postgres://user@host:notaport/db")
	assert.ErrorContains(t, err, "parse DATABASE_URL")
}

// Runs against a real server only when DATABASE_URL is set.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := ConnectPostgres(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// Schema creation is idempotent.
	again, err := ConnectPostgres(ctx, url)
	require.NoError(t, err)
	again.Close()

	provider := "test-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(),
			`DELETE FROM stream_lookups WHERE provider = $1 OR provider = $2`, provider, provider+"-other")
	})
	testStoreRoundTrip(t, s, provider)
}
