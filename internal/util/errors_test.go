package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorKinds(t *testing.T) {
	err := Validation("bad field %s", "x")
	assert.True(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(err, KindNotFound))
	assert.Equal(t, "bad field x", err.Error())

	wrapped := StoreUnavailable(errors.New("dial tcp: refused"))
	assert.True(t, IsKind(wrapped, KindStoreUnavailable))
	assert.Contains(t, wrapped.Error(), "refused")
	assert.Error(t, errors.Unwrap(wrapped))

	assert.False(t, IsKind(errors.New("plain"), KindValidation))
	assert.True(t, IsKind(NoData("nothing to submit"), KindNoData))
	assert.True(t, IsKind(NotFound("tool %q", "x"), KindNotFound))
}
