package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("pg 23505: want=true")
	}
	if !IsUniqueViolation(fmt.Errorf("insert: %w", errors.New("UNIQUE constraint failed: document_chunk.document_id"))) {
		t.Fatalf("sqlite unique: want=true")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("pg 23503: want=false")
	}
	if IsUniqueViolation(nil) {
		t.Fatalf("nil: want=false")
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: "40001"}, true},
		{&pgconn.PgError{Code: "40P01"}, true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("database is locked"), true},
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{errors.New("syntax error"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("IsTransient(%v): want=%v got=%v", tc.err, tc.want, got)
		}
	}
}
