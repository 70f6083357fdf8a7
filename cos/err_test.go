package cos_test

import (
	"errors"
	"testing"

	"github.com/inmemosd/osd/cos"
)

func TestErrsDedupesAndCaps(t *testing.T) {
	e := cos.NewErrs(2)
	e.Add(errors.New("boom"))
	e.Add(errors.New("boom"))
	e.Add(errors.New("bang"))
	e.Add(errors.New("overflow"))

	if e.Cnt() != 2 {
		t.Fatalf("Cnt() = %d, want 2 (dedup + cap)", e.Cnt())
	}
}

func TestErrsJoinErrNilWhenEmpty(t *testing.T) {
	e := cos.NewErrs()
	if e.JoinErr() != nil {
		t.Fatal("JoinErr() should be nil with no errors added")
	}
}

func TestErrInvalidArgumentMessage(t *testing.T) {
	err := cos.NewErrInvalidArgument("loglevel", "unknown level")
	if err.Error() == "" {
		t.Fatal("expected a non-empty error message")
	}
}
