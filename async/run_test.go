package async

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	assert := assert.New(t)
	a := <-Run(func() int {
		return 123
	})
	assert.Equal(123, a)

	exampleError := errors.New("example error")
	b := <-Run(func() error {
		return exampleError
	})
	assert.ErrorIs(b, exampleError)
}
