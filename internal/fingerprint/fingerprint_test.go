package fingerprint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumDeterministic(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hello"))
	require.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, Sum([]byte("hello ")))
}

func TestTextMatchesSum(t *testing.T) {
	assert.Equal(t, Sum([]byte("héllo")), Text("héllo"))
}

func TestKeyTruncation(t *testing.T) {
	d := Sum([]byte("payload"))
	key := Key(d)
	assert.Len(t, key, KeyLen)
	assert.Equal(t, d[:KeyLen], key)
	assert.Equal(t, "abc", Key("abc"))
}

func TestImageFilenameRoundTrip(t *testing.T) {
	at := time.Unix(1700000000, 0)
	d := Sum([]byte{0x89, 'P', 'N', 'G'})
	name := ImageFilename(at, d)
	assert.Equal(t, "1700000000_"+d[:KeyLen]+".png", name)
	assert.Equal(t, Key(d), KeyFromFilename(name))
}

func TestKeyFromFilenameRejectsOtherNames(t *testing.T) {
	assert.Empty(t, KeyFromFilename("notes.txt"))
	assert.Empty(t, KeyFromFilename("1700000000_short.png"))
	assert.Empty(t, KeyFromFilename("nodigits.png"))
}
