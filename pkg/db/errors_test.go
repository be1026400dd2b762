package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolationPgError(t *testing.T) {
	violation := &pgconn.PgError{Code: "23505", ConstraintName: "uniq_serial_per_item"}

	if !IsUniqueViolation(violation, "") {
		t.Fatal("23505 should match without a constraint filter")
	}
	if !IsUniqueViolation(fmt.Errorf("insert serial: %w", violation), "uniq_serial_per_item") {
		t.Fatal("wrapped 23505 should match its constraint")
	}
	if IsUniqueViolation(violation, "uniq_other") {
		t.Fatal("different constraint must not match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "40001"}, "") {
		t.Fatal("serialization failure is not a unique violation")
	}
}

func TestIsUniqueViolationMessageFallback(t *testing.T) {
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: inventory_serials.inventory_id, inventory_serials.serial_number"), "") {
		t.Fatal("sqlite message should match")
	}
	if !IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "uniq_serial_per_item"`), "uniq_serial_per_item") {
		t.Fatal("postgres message should match its constraint")
	}
	if IsUniqueViolation(errors.New("record not found"), "") {
		t.Fatal("unrelated error must not match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error must not match")
	}
}
