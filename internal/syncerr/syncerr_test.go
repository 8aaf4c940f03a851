package syncerr

import (
	"errors"
	"os"
	"testing"
)

func TestWrap_MatchesSentinelViaErrorsIs(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrLinkStoreIO, "saving link store", cause)

	if !errors.Is(err, ErrLinkStoreIO) {
		t.Error("expected errors.Is to match the wrapped sentinel")
	}
	if errors.Is(err, ErrConfig) {
		t.Error("expected errors.Is to not match an unrelated sentinel")
	}
}

func TestWrap_PreservesCauseChain(t *testing.T) {
	err := Wrap(ErrDocIOError, "rewriting task line", os.ErrNotExist)

	if !errors.Is(err, os.ErrNotExist) {
		t.Error("expected errors.Is to still reach the underlying cause")
	}
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	if Wrap(ErrConfig, "loading config", nil) != nil {
		t.Error("expected Wrap(sentinel, ctx, nil) to return nil")
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		err     error
		wantFatal bool
	}{
		{Wrap(ErrLinkStoreIO, "saving", errors.New("x")), true},
		{Wrap(ErrConfig, "loading", errors.New("x")), true},
		{Wrap(ErrDocNotFound, "rewrite", errors.New("x")), false},
		{Wrap(ErrRemSaveError, "update", errors.New("x")), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsFatal(tc.err); got != tc.wantFatal {
			t.Errorf("IsFatal(%v) = %v, want %v", tc.err, got, tc.wantFatal)
		}
	}
}
