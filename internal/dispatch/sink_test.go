package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	r "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ghost-ify/Namite/internal/chatcolor"
)

func newTestSink(t *testing.T) (*RedisSink, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := r.NewClient(&r.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisSink(rdb), mr
}

func TestRedisSinkDeliverBatch(t *testing.T) {
	sink, mr := newTestSink(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	batch := Batch{
		ID:        "batch-1",
		OpenedAt:  at,
		Flushed:   true,
		FlushedAt: at.Add(5 * time.Minute),
		Entries: []Entry{
			{Username: "longer1", Length: 7, Color: chatcolor.Red, ColorHex: "#FD2943", CheckedAt: at},
			{Username: "longer2", Length: 7, Color: chatcolor.Blue, ColorHex: "#01A2FF", CheckedAt: at},
		},
	}
	require.NoError(t, sink.DeliverBatch(context.Background(), batch))

	raw, err := mr.Lpop("notify:batch")
	require.NoError(t, err)

	var got Batch
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, batch.ID, got.ID)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "longer1", got.Entries[0].Username)
	assert.Equal(t, chatcolor.Blue, got.Entries[1].Color)
}

func TestRedisSinkDeliverUrgent(t *testing.T) {
	sink, mr := newTestSink(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	notice := Notice{
		Username:  "QJ9",
		Length:    3,
		Color:     chatcolor.Green,
		ColorHex:  "#02B857",
		CheckedAt: at,
		Mention:   true,
	}
	require.NoError(t, sink.DeliverUrgent(context.Background(), notice))

	raw, err := mr.Lpop("notify:urgent")
	require.NoError(t, err)

	var got Notice
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, "QJ9", got.Username)
	assert.Equal(t, 3, got.Length)
	assert.Equal(t, chatcolor.Green, got.Color)
	assert.Equal(t, "#02B857", got.ColorHex)
	assert.True(t, got.Mention)
	assert.True(t, got.CheckedAt.Equal(at))
}

func TestRedisSinkKeepsStreamsSeparate(t *testing.T) {
	sink, mr := newTestSink(t)

	require.NoError(t, sink.DeliverUrgent(context.Background(), Notice{Username: "abc"}))
	assert.False(t, mr.Exists("notify:batch"))
	assert.True(t, mr.Exists("notify:urgent"))
}
