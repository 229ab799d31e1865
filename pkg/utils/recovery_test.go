package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverAsError(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		fn := func() (err error) {
			defer RecoverAsError(&err)
			panic("test panic")
		}

		err := fn()
		var panicErr *PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Equal(t, "test panic", panicErr.Value)
		assert.NotEmpty(t, panicErr.StackTrace)
		assert.Equal(t, "panic: test panic", err.Error())
	})

	t.Run("preserves original error", func(t *testing.T) {
		originalErr := errors.New("original error")
		fn := func() (err error) {
			defer RecoverAsError(&err)
			return originalErr
		}
		assert.Same(t, originalErr, fn())
	})
}

func TestRecoverWithCallback(t *testing.T) {
	var got error
	func() {
		defer RecoverWithCallback(func(err error) { got = err })
		panic(errors.New("boom"))
	}()
	var panicErr *PanicError
	require.ErrorAs(t, got, &panicErr)

	assert.NotPanics(t, func() {
		defer RecoverWithCallback(nil)
		panic("no callback")
	})
}

func TestSafeGo(t *testing.T) {
	errCh := make(chan error, 1)
	SafeGo(func() {
		panic("safe go panic")
	}, func(err error) {
		errCh <- err
	})

	select {
	case err := <-errCh:
		var panicErr *PanicError
		assert.ErrorAs(t, err, &panicErr)
	case <-time.After(time.Second):
		t.Fatal("error handler was not called")
	}
}
