package generic

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	assert := assert_.New(t)

	s := NewSet[string]()
	assert.Equal(0, s.Count())
	assert.False(s.Contains("mp4"))
	assert.True(s.Add("mp4"))
	assert.False(s.Add("mp4"))
	assert.Equal(1, s.Count())
	assert.True(s.Contains("mp4"))
	assert.True(s.Remove("mp4"))
	assert.False(s.Remove("mp4"))
	assert.Equal(0, s.Count())

	s2 := NewSet("http", "https", "http")
	assert.Equal(2, s2.Count())
	assert.True(s2.Contains("http", "https"))
	assert.False(s2.Contains("http", "ftp"))
	// Contains with no items is vacuously true
	assert.True(s2.Contains())
}
