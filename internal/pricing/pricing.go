// Package pricing holds the static UCM price list: what paid actions cost,
// what earning actions reward, and the promo extras layered on top of paid
// actions. A Table is built once at startup and never mutated.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/model"
)

var (
	ErrUnknownAction = errors.New("unknown_action")
	ErrUnknownPromo  = errors.New("unknown_promo")
)

// Action identifies a paid or earning action.
type Action string

// Paid actions.
const (
	ActionRequestPublish Action = "request_publish"
	ActionPartnerSearch  Action = "partner_search"
	ActionServiceBoost   Action = "service_boost"
	ActionContactReveal  Action = "contact_reveal"
)

// Earning actions.
const (
	ActionProfileComplete Action = "PROFILE_COMPLETE"
	ActionFirstService    Action = "FIRST_SERVICE"
	ActionFirstRequest    Action = "FIRST_REQUEST"
	ActionDailyLogin      Action = "DAILY_LOGIN"
	ActionLeaveReview     Action = "LEAVE_REVIEW"
	ActionCompleteService Action = "COMPLETE_SERVICE"
)

// Reason is the ledger reason code recorded for the action.
func (a Action) Reason() model.Reason {
	return model.Reason(a)
}

// Promo is a supplemental option charged on top of a paid action.
type Promo string

const (
	PromoTop       Promo = "promote_top"
	PromoUrgent    Promo = "urgent"
	PromoHighlight Promo = "highlight"
)

type Price struct {
	Amount      decimal.Decimal
	Description string
}

type Earning struct {
	Action      Action
	Amount      decimal.Decimal
	Description string
	Repeatable  bool
}

type Table struct {
	costs    map[Action]Price
	rewards  map[Action]Earning
	extras   map[Action]map[Promo]Price
	earnings []Action
}

// New copies the given maps so later mutation by the caller does not leak in.
// Earning order is preserved for display.
func New(costs map[Action]Price, earnings []Earning, extras map[Action]map[Promo]Price) (*Table, error) {
	t := &Table{
		costs:   make(map[Action]Price, len(costs)),
		rewards: make(map[Action]Earning, len(earnings)),
		extras:  make(map[Action]map[Promo]Price, len(extras)),
	}
	for a, p := range costs {
		if !p.Amount.IsPositive() {
			return nil, fmt.Errorf("pricing: cost for %s must be positive", a)
		}
		t.costs[a] = p
	}
	for _, e := range earnings {
		if !e.Amount.IsPositive() {
			return nil, fmt.Errorf("pricing: reward for %s must be positive", e.Action)
		}
		if _, dup := t.rewards[e.Action]; dup {
			return nil, fmt.Errorf("pricing: duplicate earning %s", e.Action)
		}
		if _, clash := t.costs[e.Action]; clash {
			return nil, fmt.Errorf("pricing: %s is both paid and earning", e.Action)
		}
		t.rewards[e.Action] = e
		t.earnings = append(t.earnings, e.Action)
	}
	for a, promos := range extras {
		if _, ok := t.costs[a]; !ok {
			return nil, fmt.Errorf("pricing: promo extras for unknown action %s", a)
		}
		cp := make(map[Promo]Price, len(promos))
		for p, price := range promos {
			cp[p] = price
		}
		t.extras[a] = cp
	}
	return t, nil
}

// Default returns the production price list.
func Default() *Table {
	t, err := New(
		map[Action]Price{
			ActionRequestPublish: {decimal.NewFromInt(20), "Публікація запиту"},
			ActionPartnerSearch:  {decimal.NewFromInt(30), "Пошук партнера"},
			ActionServiceBoost:   {decimal.NewFromInt(25), "Підняття оголошення в топ на 7 днів"},
			ActionContactReveal:  {decimal.NewFromInt(5), "Відкриття контактів виконавця"},
		},
		[]Earning{
			{ActionProfileComplete, decimal.NewFromInt(10), "Заповніть профіль повністю", false},
			{ActionFirstService, decimal.NewFromInt(15), "Розмістіть першу послугу", false},
			{ActionFirstRequest, decimal.NewFromInt(5), "Створіть перший запит", false},
			{ActionDailyLogin, decimal.NewFromInt(1), "Щоденний вхід", true},
			{ActionLeaveReview, decimal.NewFromInt(3), "Залиште відгук", true},
			{ActionCompleteService, decimal.NewFromInt(5), "Виконайте замовлення", true},
		},
		map[Action]map[Promo]Price{
			ActionRequestPublish: {
				PromoTop:       {decimal.NewFromInt(40), "Закріпити запит угорі"},
				PromoUrgent:    {decimal.NewFromInt(15), "Позначка «Терміново»"},
				PromoHighlight: {decimal.NewFromInt(10), "Виділення кольором"},
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) IsPaid(a Action) bool {
	_, ok := t.costs[a]
	return ok
}

func (t *Table) IsEarning(a Action) bool {
	_, ok := t.rewards[a]
	return ok
}

func (t *Table) Cost(a Action) (decimal.Decimal, error) {
	p, ok := t.costs[a]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownAction, a)
	}
	return p.Amount, nil
}

func (t *Table) Reward(a Action) (decimal.Decimal, error) {
	e, ok := t.rewards[a]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownAction, a)
	}
	return e.Amount, nil
}

func (t *Table) Description(a Action) (string, error) {
	if p, ok := t.costs[a]; ok {
		return p.Description, nil
	}
	if e, ok := t.rewards[a]; ok {
		return e.Description, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAction, a)
}

func (t *Table) Earning(a Action) (Earning, error) {
	e, ok := t.rewards[a]
	if !ok {
		return Earning{}, fmt.Errorf("%w: %s", ErrUnknownAction, a)
	}
	return e, nil
}

// PromoExtra returns the supplemental charge of promo p on action a.
func (t *Table) PromoExtra(a Action, p Promo) (decimal.Decimal, error) {
	if !t.IsPaid(a) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownAction, a)
	}
	price, ok := t.extras[a][p]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrUnknownPromo, p, a)
	}
	return price.Amount, nil
}

// PromoExtras returns the promos available on a, keyed by promo.
func (t *Table) PromoExtras(a Action) map[Promo]Price {
	out := make(map[Promo]Price, len(t.extras[a]))
	for p, price := range t.extras[a] {
		out[p] = price
	}
	return out
}

// Total is the cost of a plus every promo extra, each promo counted once.
func (t *Table) Total(a Action, promos []Promo) (decimal.Decimal, error) {
	total, err := t.Cost(a)
	if err != nil {
		return decimal.Zero, err
	}
	seen := make(map[Promo]bool, len(promos))
	for _, p := range promos {
		if seen[p] {
			continue
		}
		seen[p] = true
		extra, err := t.PromoExtra(a, p)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(extra)
	}
	return total, nil
}

// EarningCatalog lists earning actions in display order.
func (t *Table) EarningCatalog() []Earning {
	out := make([]Earning, 0, len(t.earnings))
	for _, a := range t.earnings {
		out = append(out, t.rewards[a])
	}
	return out
}

// PaidActions returns a copy of the paid price list.
func (t *Table) PaidActions() map[Action]Price {
	out := make(map[Action]Price, len(t.costs))
	for a, p := range t.costs {
		out[a] = p
	}
	return out
}

// ParseAction validates an identifier coming from outside the process.
func (t *Table) ParseAction(s string) (Action, error) {
	a := Action(strings.TrimSpace(s))
	if t.IsPaid(a) || t.IsEarning(a) {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// ParsePromos validates promo identifiers for action a.
func (t *Table) ParsePromos(a Action, raw []string) ([]Promo, error) {
	out := make([]Promo, 0, len(raw))
	for _, s := range raw {
		p := Promo(strings.TrimSpace(s))
		if _, err := t.PromoExtra(a, p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
