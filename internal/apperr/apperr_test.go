package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	v := Validation("No files queued")
	assert.Equal(t, KindValidation, KindOf(v))
	assert.Equal(t, "No files queued", v.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(v))

	r := Request("Network error during upload", cause)
	assert.Equal(t, KindRequest, KindOf(r))
	assert.Equal(t, "Network error during upload", r.Error())
	assert.ErrorIs(t, r, cause)
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(r))

	c := Cancelled("", context.Canceled)
	assert.Equal(t, "request cancelled", c.Error())
	assert.True(t, Is(c, KindCancelled))
	assert.Equal(t, StatusClientClosed, HTTPStatus(c))
}

func TestKindOf_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("workspace.Analyze: %w", Validation("bad"))
	assert.Equal(t, KindValidation, KindOf(wrapped))

	assert.Equal(t, KindCancelled, KindOf(fmt.Errorf("x: %w", context.Canceled)))
	assert.Equal(t, KindRequest, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindRequest))
}

func TestNilReceiver(t *testing.T) {
	var e *Err
	assert.Equal(t, "", e.Error())
	assert.Nil(t, e.Unwrap())
}
