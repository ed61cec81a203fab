package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumDeterministic(t *testing.T) {
	raw := []byte("blood smear pixel data")
	assert.Equal(t, Sum(raw), Sum(raw))

	clone := append([]byte(nil), raw...)
	assert.Equal(t, Sum(raw), Sum(clone))
}

func TestSumDistinguishesContent(t *testing.T) {
	a := []byte("sample image A")
	b := append([]byte(nil), a...)
	b[len(b)-1]++ // single byte difference

	assert.NotEqual(t, Sum(a), Sum(b))
}

func TestSumEmptyInput(t *testing.T) {
	// Well-formed byte sequences never fail, including the empty one.
	assert.Len(t, Sum(nil), 64)
	assert.Equal(t, Sum(nil), Sum([]byte{}))
}
