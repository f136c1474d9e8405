package errutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[error]int{
		NewUnauthorized("Unauthorized"): http.StatusUnauthorized,
		NewNotFound("Task not found"):   http.StatusNotFound,
		NewBadRequest("title required"): http.StatusBadRequest,
		NewUpstream("calendar down"):    http.StatusBadGateway,
		NewInternal("boom"):             http.StatusInternalServerError,
		errors.New("plain"):             http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

func TestCodeOfWrapped(t *testing.T) {
	root := errors.New("row missing")
	err := fmt.Errorf("get task: %w", NewNotFound("Task not found", WithErr(root)))

	require.Equal(t, NotFound, CodeOf(err))
	require.Equal(t, "Task not found", Message(err))
	require.ErrorIs(t, err, root)
}
