package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLSN(t *testing.T) {
	lsn, err := ParseLSN("0/2000028")
	require.NoError(t, err)
	assert.Equal(t, LSN(0x2000028), lsn)
	assert.Equal(t, "0/2000028", lsn.String())

	lsn, err = ParseLSN("A/DEADBEEF")
	require.NoError(t, err)
	assert.Equal(t, LSN(0xA_DEADBEEF), lsn)
	assert.Equal(t, "A/DEADBEEF", lsn.String())
}

func TestParseLSNRejectsMalformedInput(t *testing.T) {
	for _, bad := range []string{"", "12345678", "0/", "/28", "zz/28", "0/zz", "1/2/3"} {
		_, err := ParseLSN(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestLSNSegmentSeq(t *testing.T) {
	// 0/2000028 sits in the third 16MB segment of the first log.
	lsn, err := ParseLSN("0/2000028")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), lsn.SegmentSeq())

	// 1/0 starts log 1, which is 256 segments in.
	lsn, err = ParseLSN("1/0")
	require.NoError(t, err)
	assert.Equal(t, uint64(256), lsn.SegmentSeq())
}
