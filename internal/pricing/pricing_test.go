package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDefaultLookups(t *testing.T) {
	tbl := Default()
	tests := []struct {
		name    string
		lookup  func() (decimal.Decimal, error)
		want    int64
		wantErr error
	}{
		{"partner search cost", func() (decimal.Decimal, error) { return tbl.Cost(ActionPartnerSearch) }, 30, nil},
		{"request publish cost", func() (decimal.Decimal, error) { return tbl.Cost(ActionRequestPublish) }, 20, nil},
		{"profile reward", func() (decimal.Decimal, error) { return tbl.Reward(ActionProfileComplete) }, 10, nil},
		{"reward of paid action", func() (decimal.Decimal, error) { return tbl.Reward(ActionPartnerSearch) }, 0, ErrUnknownAction},
		{"cost of earning action", func() (decimal.Decimal, error) { return tbl.Cost(ActionDailyLogin) }, 0, ErrUnknownAction},
		{"cost of unknown", func() (decimal.Decimal, error) { return tbl.Cost(Action("teleport")) }, 0, ErrUnknownAction},
		{"promo extra", func() (decimal.Decimal, error) { return tbl.PromoExtra(ActionRequestPublish, PromoTop) }, 40, nil},
		{"promo on action without extras", func() (decimal.Decimal, error) { return tbl.PromoExtra(ActionPartnerSearch, PromoTop) }, 0, ErrUnknownPromo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.lookup()
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "err=%v", err)
				return
			}
			require.NoError(t, err)
			require.True(t, decimal.NewFromInt(tt.want).Equal(got), "got=%s", got)
		})
	}
}

func TestTotalCountsEachPromoOnce(t *testing.T) {
	tbl := Default()
	got, err := tbl.Total(ActionRequestPublish, []Promo{PromoUrgent, PromoHighlight, PromoUrgent})
	require.NoError(t, err)
	require.Equal(t, "45", got.String())

	_, err = tbl.Total(ActionRequestPublish, []Promo{"confetti"})
	require.ErrorIs(t, err, ErrUnknownPromo)
}

func TestParseAction(t *testing.T) {
	tbl := Default()
	a, err := tbl.ParseAction(" partner_search ")
	require.NoError(t, err)
	require.Equal(t, ActionPartnerSearch, a)

	a, err = tbl.ParseAction("DAILY_LOGIN")
	require.NoError(t, err)
	require.Equal(t, ActionDailyLogin, a)

	_, err = tbl.ParseAction("admin_grant")
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestNewRejectsInvalidTables(t *testing.T) {
	_, err := New(map[Action]Price{"x": {decimal.NewFromInt(-1), ""}}, nil, nil)
	require.Error(t, err)

	_, err = New(nil, []Earning{{Action: "y", Amount: decimal.Zero}}, nil)
	require.Error(t, err)

	_, err = New(nil, nil, map[Action]map[Promo]Price{"z": {PromoTop: {decimal.NewFromInt(1), ""}}})
	require.Error(t, err)

	_, err = New(map[Action]Price{"x": {decimal.NewFromInt(1), ""}}, []Earning{{Action: "x", Amount: decimal.NewFromInt(1)}}, nil)
	require.Error(t, err)
}

func TestTableIsolatedFromCallerMaps(t *testing.T) {
	costs := map[Action]Price{"ping": {decimal.NewFromInt(3), "ping"}}
	tbl, err := New(costs, nil, nil)
	require.NoError(t, err)

	costs["ping"] = Price{decimal.NewFromInt(300), "mutated"}
	got, err := tbl.Cost("ping")
	require.NoError(t, err)
	require.Equal(t, "3", got.String())
}

func TestEarningCatalogOrder(t *testing.T) {
	cat := Default().EarningCatalog()
	require.Len(t, cat, 6)
	require.Equal(t, ActionProfileComplete, cat[0].Action)
	require.False(t, cat[0].Repeatable)
	require.Equal(t, ActionCompleteService, cat[5].Action)
	require.True(t, cat[5].Repeatable)
}
