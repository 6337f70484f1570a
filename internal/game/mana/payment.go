package mana

import (
	"fmt"
	"strings"
)

// PaymentCheck is the result of an affordability check.
type PaymentCheck struct {
	CanPay bool
	Reason string
}

// CanPay checks whether the pool can pay a resolved cost for the given
// object. Each required color is checked independently; the generic
// component is then verified against the mana remaining after colored
// requirements are subtracted, so generic never steals mana from a
// still-required color.
func CanPay(cost *Cost, pool *ManaPool, objectID string, xValue int) PaymentCheck {
	if cost == nil {
		return PaymentCheck{CanPay: true}
	}
	if len(cost.Symbols) > 0 {
		return PaymentCheck{Reason: "hybrid symbols not yet resolved to payment options"}
	}
	if cost.X && xValue < 0 {
		return PaymentCheck{Reason: "X cost requires a chosen value"}
	}

	colored := append([]ManaType{}, ColoredTypes...)
	colored = append(colored, ManaColorless)
	for _, mt := range colored {
		need := cost.ColorAmount(mt)
		have := pool.GetTotalFor(mt, objectID)
		if have < need {
			return PaymentCheck{
				Reason: fmt.Sprintf("insufficient %s mana (need %d, have %d)", strings.ToLower(string(mt)), need, have),
			}
		}
	}

	generic := cost.Generic
	if cost.X {
		generic += xValue
	}
	remaining := pool.GetTotalManaFor(objectID) - cost.ColoredTotal()
	if remaining < generic {
		return PaymentCheck{
			Reason: fmt.Sprintf("insufficient mana for generic cost (need %d, have %d)", generic, remaining),
		}
	}

	return PaymentCheck{CanPay: true}
}

// PaymentPlan records the exact mana debited per type, including the
// allocation chosen for the generic component.
type PaymentPlan struct {
	White     int
	Blue      int
	Black     int
	Red       int
	Green     int
	Colorless int
	XValue    int
}

// Total returns the total mana the plan spends.
func (pp *PaymentPlan) Total() int {
	return pp.White + pp.Blue + pp.Black + pp.Red + pp.Green + pp.Colorless
}

func (pp *PaymentPlan) add(manaType ManaType, amount int) {
	switch manaType {
	case ManaWhite:
		pp.White += amount
	case ManaBlue:
		pp.Blue += amount
	case ManaBlack:
		pp.Black += amount
	case ManaRed:
		pp.Red += amount
	case ManaGreen:
		pp.Green += amount
	case ManaColorless:
		pp.Colorless += amount
	}
}

func (pp *PaymentPlan) amount(manaType ManaType) int {
	switch manaType {
	case ManaWhite:
		return pp.White
	case ManaBlue:
		return pp.Blue
	case ManaBlack:
		return pp.Black
	case ManaRed:
		return pp.Red
	case ManaGreen:
		return pp.Green
	case ManaColorless:
		return pp.Colorless
	default:
		return 0
	}
}

// PaymentResult represents the result of a payment calculation.
type PaymentResult struct {
	Success bool
	Plan    *PaymentPlan
	Reason  string
}

// CalculatePayment builds a payment plan for a resolved cost by
// simulating the debit on a copy of the pool. Colored requirements are
// charged exactly; the generic component is allocated colorless first,
// then colors in WUBRG order. The returned plan always passes
// ExecutePayment against an unchanged pool.
func CalculatePayment(cost *Cost, pool *ManaPool, objectID string, xValue int) *PaymentResult {
	if cost == nil {
		return &PaymentResult{Success: true, Plan: &PaymentPlan{}}
	}

	if check := CanPay(cost, pool, objectID, xValue); !check.CanPay {
		return &PaymentResult{Reason: check.Reason}
	}

	plan := &PaymentPlan{XValue: xValue}
	testPool := pool.Copy()

	colored := append([]ManaType{}, ColoredTypes...)
	colored = append(colored, ManaColorless)
	for _, mt := range colored {
		need := cost.ColorAmount(mt)
		if !testPool.SpendFor(mt, need, objectID) {
			return &PaymentResult{Reason: fmt.Sprintf("insufficient %s mana (need %d)", strings.ToLower(string(mt)), need)}
		}
		plan.add(mt, need)
	}

	generic := cost.Generic
	if cost.X {
		generic += xValue
	}
	// Colorless first so colored mana stays available for later spells.
	order := append([]ManaType{ManaColorless}, ColoredTypes...)
	for _, mt := range order {
		if generic <= 0 {
			break
		}
		available := testPool.GetTotalFor(mt, objectID)
		spend := generic
		if spend > available {
			spend = available
		}
		if spend > 0 {
			testPool.SpendFor(mt, spend, objectID)
			plan.add(mt, spend)
			generic -= spend
		}
	}
	if generic > 0 {
		return &PaymentResult{Reason: fmt.Sprintf("insufficient mana for generic cost (need %d more)", generic)}
	}

	return &PaymentResult{Success: true, Plan: plan}
}

// ExecutePayment debits a payment plan from the pool. A plan produced by
// CalculatePayment against the same pool state cannot fail; a false
// return means the pool changed since the plan was built.
func ExecutePayment(plan *PaymentPlan, pool *ManaPool, objectID string) bool {
	if plan == nil {
		return true
	}

	types := append([]ManaType{}, ColoredTypes...)
	types = append(types, ManaColorless)

	// Verify everything before spending anything.
	for _, mt := range types {
		if pool.GetTotalFor(mt, objectID) < plan.amount(mt) {
			return false
		}
	}
	for _, mt := range types {
		if !pool.SpendFor(mt, plan.amount(mt), objectID) {
			return false
		}
	}
	return true
}
