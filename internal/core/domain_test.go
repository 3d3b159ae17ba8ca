package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"EXPENSE", Expense, true},
		{"income", Income, true},
		{" Income ", Income, true},
		{"", "", false},
		{"TRANSFER", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidType) {
			t.Fatalf("%q expected ErrInvalidType, got %v", tc.in, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	good := Transaction{
		Amount:   Money{Cents: 1250},
		Category: "Food",
		Date:     now,
		Type:     Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		tx   Transaction
		want error
	}{
		{Transaction{Amount: Money{Cents: 0}, Category: "c", Date: now, Type: Expense}, ErrInvalidAmount},
		{Transaction{Amount: Money{Cents: -5}, Category: "c", Date: now, Type: Income}, ErrInvalidAmount},
		{Transaction{Amount: Money{Cents: 1}, Category: "   ", Date: now, Type: Expense}, ErrEmptyCategory},
		{Transaction{Amount: Money{Cents: 1}, Category: "c", Date: now, Type: "OTHER"}, ErrInvalidType},
		{Transaction{Amount: Money{Cents: 1}, Category: "c", Type: Expense}, ErrZeroDate},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestTransactionNormalize(t *testing.T) {
	tx := Transaction{
		Category:    "  Food ",
		Description: "\tlunch  ",
		Date:        time.Date(2025, 1, 2, 3, 4, 5, 123456789, time.UTC),
	}
	n := tx.Normalize()
	if n.Category != "Food" || n.Description != "lunch" {
		t.Fatalf("fields not trimmed: %+v", n)
	}
	if n.Date.Nanosecond() != 123000000 {
		t.Fatalf("date not truncated to milliseconds: %v", n.Date)
	}
}

func TestTransactionSigned(t *testing.T) {
	exp := Transaction{Amount: Money{Cents: 300}, Type: Expense}
	inc := Transaction{Amount: Money{Cents: 300}, Type: Income}
	if exp.Signed().Cents != -300 || inc.Signed().Cents != 300 {
		t.Fatalf("unexpected signed amounts: %d %d", exp.Signed().Cents, inc.Signed().Cents)
	}
}
