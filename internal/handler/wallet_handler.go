package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/service"
)

// WalletHandler serves the UCM balance, ledger history, earnings and
// referral views plus the public price list.
type WalletHandler struct {
	ledger    service.LedgerService
	rewards   service.RewardService
	referrals service.ReferralService
	prices    *pricing.Table
}

func NewWalletHandler(ledger service.LedgerService, rewards service.RewardService, referrals service.ReferralService, prices *pricing.Table) *WalletHandler {
	return &WalletHandler{ledger: ledger, rewards: rewards, referrals: referrals, prices: prices}
}

type LedgerEntryResponse struct {
	ID           uint64          `json:"id"`
	Amount       decimal.Decimal `json:"amount"`
	Kind         string          `json:"kind"`
	Reason       string          `json:"reason"`
	RelatedType  *string         `json:"relatedType,omitempty"`
	RelatedID    *string         `json:"relatedId,omitempty"`
	Description  string          `json:"description"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	CreatedAt    string          `json:"createdAt"`
}

func toLedgerEntryResponse(e model.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:           e.ID,
		Amount:       e.Amount,
		Kind:         string(e.Kind),
		Reason:       string(e.Reason),
		RelatedType:  e.RelatedType,
		RelatedID:    e.RelatedID,
		Description:  e.Description,
		BalanceAfter: e.BalanceAfter,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

func (h *WalletHandler) Balance(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	bal, err := h.ledger.Balance(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err, "failed to load balance")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"balance": bal})
}

func (h *WalletHandler) History(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	list, total, err := h.ledger.History(c.Request().Context(), uid, queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		return respondError(c, err, "failed to load ledger")
	}
	resp := make([]LedgerEntryResponse, 0, len(list))
	for _, e := range list {
		resp = append(resp, toLedgerEntryResponse(e))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": resp,
		"total":   total,
	})
}

func (h *WalletHandler) Earnings(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"earnings": h.rewards.Progress(c.Request().Context(), uid),
	})
}

func (h *WalletHandler) Referral(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	st, err := h.referrals.Stats(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err, "failed to load referral stats")
	}
	return c.JSON(http.StatusOK, st)
}

type priceItem struct {
	Action      string          `json:"action"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Repeatable  bool            `json:"repeatable,omitempty"`
	Promos      []promoItem     `json:"promos,omitempty"`
}

type promoItem struct {
	Promo       string          `json:"promo"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (h *WalletHandler) Pricing(c echo.Context) error {
	paid := make([]priceItem, 0)
	for a, p := range h.prices.PaidActions() {
		item := priceItem{Action: string(a), Amount: p.Amount, Description: p.Description}
		for promo, price := range h.prices.PromoExtras(a) {
			item.Promos = append(item.Promos, promoItem{Promo: string(promo), Amount: price.Amount, Description: price.Description})
		}
		sort.Slice(item.Promos, func(i, j int) bool { return item.Promos[i].Promo < item.Promos[j].Promo })
		paid = append(paid, item)
	}
	sort.Slice(paid, func(i, j int) bool { return paid[i].Action < paid[j].Action })

	earn := make([]priceItem, 0)
	for _, e := range h.prices.EarningCatalog() {
		earn = append(earn, priceItem{Action: string(e.Action), Amount: e.Amount, Description: e.Description, Repeatable: e.Repeatable})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"paid":     paid,
		"earnings": earn,
	})
}
