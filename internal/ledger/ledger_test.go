package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/shopspring/decimal"
)

type accounts map[string]*domain.Account

func (m accounts) LoadAccountForUpdate(ctx context.Context, owner string) (*domain.Account, error) {
	if a, ok := m[owner]; ok {
		return a.Clone(), nil
	}
	return domain.NewAccount(owner), nil
}

func (m accounts) SaveAccount(ctx context.Context, a *domain.Account) error {
	m[a.Owner] = a.Clone()
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDebitCashFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	m := accounts{}
	if err := CreditCash(ctx, m, "u", dec("10.005")); err != nil {
		t.Fatal(err)
	}
	if got := m["u"].Cash; !got.Equal(dec("10.01")) {
		t.Fatalf("credit should round to cents, got %s", got)
	}
	if err := DebitCash(ctx, m, "u", dec("15")); err != nil {
		t.Fatalf("debit must not fail on shortfall: %v", err)
	}
	if !m["u"].Cash.IsZero() || !m["u"].CashDebt.Equal(dec("4.99")) {
		t.Fatalf("cash %s debt %s, want 0 and 4.99", m["u"].Cash, m["u"].CashDebt)
	}

	// credits do not pay the debt down
	if err := CreditCash(ctx, m, "u", dec("3")); err != nil {
		t.Fatal(err)
	}
	if !m["u"].Cash.Equal(dec("3")) || !m["u"].CashDebt.Equal(dec("4.99")) {
		t.Fatalf("cash %s debt %s after credit", m["u"].Cash, m["u"].CashDebt)
	}
}

func TestAdjustCash(t *testing.T) {
	ctx := context.Background()
	m := accounts{"u": {Owner: "u", Cash: dec("5"), Assets: map[string]decimal.Decimal{}}}

	tests := []struct {
		delta string
		want  string
	}{
		{"2.50", "7.5"},
		{"-1.25", "6.25"},
		{"0", "6.25"},
		{"0.001", "6.25"},
	}
	for _, tt := range tests {
		if err := AdjustCash(ctx, m, "u", dec(tt.delta)); err != nil {
			t.Fatalf("adjust %s: %v", tt.delta, err)
		}
		if got := m["u"].Cash; !got.Equal(dec(tt.want)) {
			t.Fatalf("after %s cash = %s, want %s", tt.delta, got, tt.want)
		}
	}
}

func TestDebitAssetIsStrict(t *testing.T) {
	ctx := context.Background()
	m := accounts{}
	if err := CreditAsset(ctx, m, "u", "SWORD", dec("2.5")); err != nil {
		t.Fatal(err)
	}
	err := DebitAsset(ctx, m, "u", "SWORD", dec("3"))
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind != domain.KindInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if !de.Required.Equal(dec("3")) || !de.Available.Equal(dec("2.5")) {
		t.Fatalf("required/available = %s/%s", de.Required, de.Available)
	}
	if got := m["u"].Asset("SWORD"); !got.Equal(dec("2.5")) {
		t.Fatalf("failed debit changed the holding to %s", got)
	}
	if err := DebitAsset(ctx, m, "u", "SWORD", dec("2.5")); err != nil {
		t.Fatalf("exact debit: %v", err)
	}
	if got := m["u"].Asset("SWORD"); !got.IsZero() {
		t.Fatalf("holding = %s, want 0", got)
	}
}

func TestRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	m := accounts{}
	if err := CreditCash(ctx, m, "u", dec("-1")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("negative credit: %v", err)
	}
	if err := CreditAsset(ctx, m, "", "SWORD", dec("1")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing owner: %v", err)
	}
	if len(m) != 0 {
		t.Fatal("rejected calls must not write")
	}
}
