package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsForeignKeyViolation(t *testing.T) {
	err := &pgconn.PgError{Code: sqlStateForeignKeyViolation}
	if !IsForeignKeyViolation(err) {
		t.Fatal("expected a foreign key violation")
	}
	if IsForeignKeyViolation(errors.New("other")) {
		t.Fatal("expected a plain error not to classify as a foreign key violation")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: sqlStateUniqueViolation}
	if !IsUniqueViolation(err) {
		t.Fatal("expected a unique violation")
	}
}

func TestIsTransientNilIsFalse(t *testing.T) {
	if IsTransient(nil) {
		t.Fatal("a nil error is not transient")
	}
}

func TestIsTransientContextErrorsAreTransient(t *testing.T) {
	if !IsTransient(context.DeadlineExceeded) {
		t.Fatal("expected context.DeadlineExceeded to be transient")
	}
	if !IsTransient(context.Canceled) {
		t.Fatal("expected context.Canceled to be transient")
	}
}

func TestIsTransientDataIntegrityErrorsAreNotTransient(t *testing.T) {
	if IsTransient(&pgconn.PgError{Code: sqlStateForeignKeyViolation}) {
		t.Fatal("a foreign key violation is a data problem, not transient")
	}
	if IsTransient(&pgconn.PgError{Code: sqlStateUniqueViolation}) {
		t.Fatal("a unique violation is a data problem, not transient")
	}
}

func TestIsTransientConnectionExceptionIsTransient(t *testing.T) {
	if !IsTransient(&pgconn.PgError{Code: "08006"}) {
		t.Fatal("expected class 08 (connection exception) to be transient")
	}
	if !IsTransient(&pgconn.PgError{Code: "57P01"}) {
		t.Fatal("expected class 57 (operator intervention) to be transient")
	}
}

func TestIsTransientUnclassifiableErrorDefaultsTransient(t *testing.T) {
	if !IsTransient(errors.New("something unexpected")) {
		t.Fatal("expected an unclassifiable error to default to transient (fail-safe)")
	}
}
