package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestHasCode(t *testing.T) {
	err := NewNotFoundError("document", "users/abc")
	if !HasCode(err, CodeNotFound) {
		t.Fatal("expected NOT_FOUND code")
	}
	if HasCode(err, CodeValidation) {
		t.Fatal("code mismatch must report false")
	}

	// Wrapping preserves the code.
	wrapped := fmt.Errorf("while loading: %w", err)
	if !HasCode(wrapped, CodeNotFound) {
		t.Fatal("expected code through wrapping")
	}

	if HasCode(errors.New("plain"), CodeNotFound) {
		t.Fatal("plain errors carry no code")
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewNotFoundError("doc", "x"), fiber.StatusNotFound},
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{NewTxnAbortedError("accept friend request", errors.New("conflict")), fiber.StatusConflict},
		{NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
		{NewSubscriptionError("friends", errors.New("down")), fiber.StatusInternalServerError},
		{errors.New("plain"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusForError(tc.err); got != tc.want {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestTxnAbortedKeepsCause(t *testing.T) {
	cause := errors.New("unique constraint")
	err := NewTxnAbortedError("send friend request", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause must unwrap")
	}
}
