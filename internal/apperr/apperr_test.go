package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Invalid("bad"), http.StatusBadRequest},
		{MissingField("name", "Please enter a name"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{ConfirmationRequired("sure?"), http.StatusPreconditionRequired},
		{Unauthenticated("who?"), http.StatusUnauthorized},
		{Internal("boom"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("x")), http.StatusNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestAs(t *testing.T) {
	e := As(fmt.Errorf("ctx: %w", MissingField("phone", "Please enter a phone number")), "fallback")
	assert.Equal(t, CodeInvalidArgument, e.Code)
	assert.Equal(t, "phone", e.Field)

	e = As(errors.New("db down"), "Failed to add person")
	assert.Equal(t, CodeInternal, e.Code)
	assert.Equal(t, "Failed to add person", e.Message)

	assert.True(t, IsCode(ConfirmationRequired("?"), CodeConfirmationRequired))
	assert.False(t, IsCode(errors.New("x"), CodeConfirmationRequired))
}
