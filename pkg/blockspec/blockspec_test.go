package blockspec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTip struct{ n uint64 }

func (f fakeTip) LatestBlockNumber(ctx context.Context) (uint64, error) { return f.n, nil }

func TestParseBlockToken_SingleNumber(t *testing.T) {
	c, err := parseBlockToken(context.Background(), "100", true, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{100}, c.Values())
}

func TestParseBlockToken_RelativeStart(t *testing.T) {
	c, err := parseBlockToken(context.Background(), "-10:100", true, nil)
	require.NoError(t, err)
	assert.True(t, c.IsRange())
	assert.Equal(t, uint64(90), c.MinBlock())
	assert.Equal(t, uint64(100), c.MaxBlock())
}

func TestParseBlockToken_RelativeEnd(t *testing.T) {
	c, err := parseBlockToken(context.Background(), "10:+100", true, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), c.MinBlock())
	assert.Equal(t, uint64(110), c.MaxBlock())
}

func TestParseBlockToken_LatestUsesTip(t *testing.T) {
	c, err := parseBlockToken(context.Background(), "1:latest", true, fakeTip{n: 12})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.MinBlock())
	assert.Equal(t, uint64(12), c.MaxBlock())
}

func TestParseBlockInputs_MultiToken(t *testing.T) {
	chunks, err := parseBlockInputs(context.Background(), "15M:+1 1000:1002 -3:1000000000 2000", fakeTip{n: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Equal(t, []uint64{15000000, 15000001}, chunks[0].Values())
	assert.Equal(t, []uint64{1000, 1001, 1002}, chunks[1].Values())
	assert.Equal(t, uint64(999999997), chunks[2].MinBlock())
	assert.Equal(t, uint64(1000000000), chunks[2].MaxBlock())
	assert.Equal(t, []uint64{2000}, chunks[3].Values())
}

func TestParseBlockNumber_Suffixes(t *testing.T) {
	n, err := parseBlockNumber(context.Background(), "15M", rangeNone, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(15000000), n)

	n, err = parseBlockNumber(context.Background(), "2K", rangeNone, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), n)

	n, err = parseBlockNumber(context.Background(), "1b", rangeNone, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000000000), n)
}

func TestResolve_SplitsIntoChunks(t *testing.T) {
	chunks, err := Resolve(context.Background(), []string{"16000000:16000010"}, nil, ResolveOptions{ChunkSize: 5})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, uint64(16000000), chunks[0].MinBlock())
	assert.Equal(t, uint64(16000004), chunks[0].MaxBlock())
}

func TestResolve_ReorgBufferDropsChunks(t *testing.T) {
	chunks, err := Resolve(context.Background(), []string{"90:100"}, fakeTip{n: 95}, ResolveOptions{ReorgBuffer: 10})
	require.NoError(t, err)
	assert.Len(t, chunks, 0)
}

func TestParseSteppedToken(t *testing.T) {
	c, err := parseBlockToken(context.Background(), "0:10:5", false, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 5, 10}, c.Values())
}

func TestParseSampledToken(t *testing.T) {
	c, err := parseBlockToken(context.Background(), "0:100/5", false, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 25, 50, 75, 100}, c.Values())
}
