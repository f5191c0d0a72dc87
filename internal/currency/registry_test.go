package currency

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRegistryResolve(t *testing.T) {
	reg, err := NewRegistry(context.Background(), NewStaticRepository(DefaultSet()))
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	cur, err := reg.Resolve("usd")
	if err != nil {
		t.Fatalf("resolve usd: %v", err)
	}
	if cur.Code != "USD" || !cur.Rate.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unexpected currency: %+v", cur)
	}

	if _, err := reg.Resolve("XXX"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if def := reg.Default(); def.Code != "USD" {
		t.Fatalf("expected USD default, got %s", def.Code)
	}
}

func TestRegistryRejectsBadDefaultConfig(t *testing.T) {
	noDefault := []Currency{
		{Code: "USD", Name: "US Dollar", Type: TypeFiat, Rate: decimal.NewFromInt(1), Enabled: true},
	}
	if _, err := NewRegistry(context.Background(), NewStaticRepository(noDefault)); err == nil {
		t.Fatal("expected error with zero defaults")
	}

	twoDefaults := []Currency{
		{Code: "USD", Name: "US Dollar", Type: TypeFiat, Rate: decimal.NewFromInt(1), Enabled: true, Default: true},
		{Code: "EUR", Name: "Euro", Type: TypeFiat, Rate: decimal.RequireFromString("0.9"), Enabled: true, Default: true},
	}
	if _, err := NewRegistry(context.Background(), NewStaticRepository(twoDefaults)); err == nil {
		t.Fatal("expected error with two defaults")
	}
}

func TestRegistryRejectsNonPositiveRates(t *testing.T) {
	zeroRate := []Currency{
		{Code: "USD", Name: "US Dollar", Type: TypeFiat, Rate: decimal.NewFromInt(1), Enabled: true, Default: true},
		{Code: "EUR", Name: "Euro", Type: TypeFiat, Rate: decimal.Zero, Enabled: true},
	}
	if _, err := NewRegistry(context.Background(), NewStaticRepository(zeroRate)); err == nil {
		t.Fatal("expected error with a zero rate")
	}

	// A disabled row with a bad rate cannot be served, so it is tolerated.
	disabledZero := []Currency{
		{Code: "USD", Name: "US Dollar", Type: TypeFiat, Rate: decimal.NewFromInt(1), Enabled: true, Default: true},
		{Code: "OLD", Name: "Retired", Type: TypeFiat, Rate: decimal.Zero},
	}
	if _, err := NewRegistry(context.Background(), NewStaticRepository(disabledZero)); err != nil {
		t.Fatalf("disabled zero-rate row should load: %v", err)
	}
}

func TestRegistryListEnabledByType(t *testing.T) {
	reg, err := NewRegistry(context.Background(), NewStaticRepository(DefaultSet()))
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	fiat := reg.ListEnabled(TypeFiat)
	for _, cur := range fiat {
		if cur.Type != TypeFiat {
			t.Fatalf("expected fiat only, got %s", cur.Code)
		}
	}
	if len(fiat) != 4 {
		t.Fatalf("expected 4 fiat currencies, got %d", len(fiat))
	}
	if all := reg.ListEnabled(""); len(all) != 6 {
		t.Fatalf("expected 6 currencies, got %d", len(all))
	}
}
