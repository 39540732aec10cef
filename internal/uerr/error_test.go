package uerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{InvalidOperation, http.StatusBadRequest},
		{InvalidValue, http.StatusBadRequest},
		{ArgParse, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{Unexpected, http.StatusInternalServerError},
		{IO, http.StatusInternalServerError},
	}
	for _, c := range cases {
		e := &Error{Kind: c.kind}
		if got := e.HTTPStatus(); got != c.want {
			t.Errorf("Kind %v: HTTPStatus() = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(IO, "saving library", cause)
	if !errors.Is(e, cause) {
		t.Errorf("errors.Is(e, cause) = false, want true")
	}
	var target *Error
	if !errors.As(error(e), &target) {
		t.Fatalf("errors.As failed")
	}
	if target.Kind != IO {
		t.Errorf("Kind = %v, want IO", target.Kind)
	}
}

func TestAsFindsWrapped(t *testing.T) {
	inner := InvalidValuef("bad volume %d", -1)
	outer := fmt.Errorf("wrapper: %w", inner)
	if found, ok := As(outer); !ok || found.Kind != InvalidValue {
		t.Fatalf("As(outer) = %v, %v", found, ok)
	}
}
