package archive

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"rutosms/pkg/rutos/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()

	a, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	return a
}

func TestArchive_SaveReceivedAndQuery(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	msg := types.Message{
		Index:  "4",
		Date:   "Wed Dec 28 17:19:31 2022",
		Sender: "+4917012345678",
		Text:   "hello from the router",
		Status: "unread",
	}
	require.NoError(t, a.SaveReceived(ctx, msg))

	records, err := a.RecentMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, DirectionReceived, records[0].Direction)
	assert.Equal(t, "4", records[0].Index)
	assert.Equal(t, "+4917012345678", records[0].Peer)
	assert.Equal(t, "hello from the router", records[0].Body)
	assert.Equal(t, "unread", records[0].Detail)
	assert.True(t, records[0].Success)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestArchive_SaveResult(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	require.NoError(t, a.SaveResult(ctx, DirectionSent, "", "0049170000000", "hi there", "OK", true))
	require.NoError(t, a.SaveResult(ctx, DirectionDeleted, "7", "", "", "ERROR", false))

	records, err := a.RecentMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, DirectionDeleted, records[0].Direction)
	assert.Equal(t, "7", records[0].Index)
	assert.False(t, records[0].Success)

	assert.Equal(t, DirectionSent, records[1].Direction)
	assert.Equal(t, "0049170000000", records[1].Peer)
	assert.True(t, records[1].Success)
}

func TestArchive_RecentMessagesLimit(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.SaveResult(ctx, DirectionSent, "", "123", "msg", "OK", true))
	}

	records, err := a.RecentMessages(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestArchive_EncryptionRoundTrip(t *testing.T) {
	secret := strings.Repeat("s", 40)
	t.Setenv("RUTOSMS_ENABLE_ENCRYPTION", "true")
	t.Setenv("RUTOSMS_ENCRYPTION_SECRET", secret)

	a := openTestArchive(t)
	ctx := context.Background()

	msg := types.Message{Index: "1", Sender: "secret-sender", Text: "secret text", Status: "read"}
	require.NoError(t, a.SaveReceived(ctx, msg))

	// Stored columns must not contain the plaintext.
	var peer, body string
	row := a.db.QueryRow(`SELECT peer, body FROM messages WHERE msg_index = '1'`)
	require.NoError(t, row.Scan(&peer, &body))
	assert.NotEqual(t, "secret-sender", peer)
	assert.NotEqual(t, "secret text", body)

	// Read path decrypts transparently.
	records, err := a.RecentMessages(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "secret-sender", records[0].Peer)
	assert.Equal(t, "secret text", records[0].Body)
}

func TestEncryptor_RequiresSecret(t *testing.T) {
	t.Setenv("RUTOSMS_ENABLE_ENCRYPTION", "true")
	t.Setenv("RUTOSMS_ENCRYPTION_SECRET", "")

	_, err := newEncryptor()
	require.Error(t, err)
}

func TestEncryptor_RejectsShortSecret(t *testing.T) {
	t.Setenv("RUTOSMS_ENABLE_ENCRYPTION", "true")
	t.Setenv("RUTOSMS_ENCRYPTION_SECRET", "too-short")

	_, err := newEncryptor()
	require.Error(t, err)
}

func TestEncryptor_DisabledPassesThrough(t *testing.T) {
	t.Setenv("RUTOSMS_ENABLE_ENCRYPTION", "false")

	e, err := newEncryptor()
	require.NoError(t, err)

	out, err := e.encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
}
