package credits

import (
	"fmt"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/shopspring/decimal"
)

// ExpiryOutcome describes what an expired plan did to an officer's balance during an update.
type ExpiryOutcome struct {
	PreviousCredits decimal.Decimal `json:"previous_credits"`
	NewCredits      decimal.Decimal `json:"new_credits"`
	Message         string          `json:"message"`
}

// RenewalCredits applies the renewal matrix to an expired plan.
//
//	renewal  carry   new
//	true     true    prev + default
//	true     false   default
//	false    true    prev
//	false    false   0
func RenewalCredits(prev, def decimal.Decimal, renewal, carry bool) decimal.Decimal {
	switch {
	case renewal && carry:
		return prev.Add(def)
	case renewal:
		return def
	case carry:
		return prev
	default:
		return decimal.Zero
	}
}

// expiryOutcome builds the outcome and its human-readable message for officer name.
func expiryOutcome(name string, prev decimal.Decimal, plan model.RatePlan) ExpiryOutcome {
	def := plan.DefaultCredits
	next := RenewalCredits(prev, def, plan.RenewalRequired, plan.CarryForward)

	var msg string
	switch {
	case plan.RenewalRequired && plan.CarryForward:
		msg = fmt.Sprintf("Officer %s's plan renewed. Credits: %s (carried) + %s (renewal) = %s.",
			name, prev.StringFixed(2), def.StringFixed(2), next.StringFixed(2))
	case plan.RenewalRequired:
		msg = fmt.Sprintf("Officer %s's plan renewed. Credits reset to %s.", name, def.StringFixed(2))
	case plan.CarryForward:
		msg = fmt.Sprintf("Officer %s's plan expired (no auto-renewal). Credits carried forward: %s.", name, prev.StringFixed(2))
	default:
		msg = fmt.Sprintf("Officer %s's plan expired (no auto-renewal). Credits reset to 0.", name)
	}

	return ExpiryOutcome{PreviousCredits: prev, NewCredits: next, Message: msg}
}

// PlanExpired reports whether a plan with positive validity has run out for anchor.
func PlanExpired(plan model.RatePlan, anchor, now time.Time) bool {
	return plan.Expires() && plan.ExpiryFrom(anchor).Before(now)
}

// ApplyDelta returns the balance after a ledger row of action and credits.
// Deductions subtract |c|, everything else adds |c|; remaining never drops below 0.
// total grows only on Renewal and Top-up.
func ApplyDelta(remaining, total decimal.Decimal, action model.Action, c decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	amt := c.Abs()
	delta := amt
	if action == model.ActionDeduction {
		delta = amt.Neg()
	}

	next := decimal.Max(decimal.Zero, remaining.Add(delta))
	if action.GrowsTotal() {
		total = total.Add(amt)
	}
	return next, total
}

// manualRenewal computes credits and ledger remarks for an admin-triggered renewal.
func manualRenewal(remaining decimal.Decimal, plan model.RatePlan) (decimal.Decimal, string) {
	def := plan.DefaultCredits
	if !plan.CarryForward {
		return def, fmt.Sprintf("Manual renewal for %s. Added %s credits.", plan.PlanName, def.StringFixed(2))
	}

	next := def.Add(remaining)
	return next, fmt.Sprintf("Manual renewal for %s. Carried forward %s credits + %s new credits = %s total credits.",
		plan.PlanName, remaining.StringFixed(2), def.StringFixed(2), next.StringFixed(2))
}

// resetTarget decides the expiry-job outcome for one officer. ok is false when
// the officer is out of scope: no validity on the plan, no start date, not yet
// expired, or the plan carries credits forward.
func resetTarget(o model.OfficerWithPlan, now time.Time) (decimal.Decimal, bool) {
	if o.ValidityDays == nil || o.PlanStartDate == nil || o.CarryForward {
		return decimal.Zero, false
	}
	if !o.PlanStartDate.AddDate(0, 0, *o.ValidityDays).Before(now) {
		return decimal.Zero, false
	}
	if o.PlanDefaultCredits.Valid {
		return o.PlanDefaultCredits.Decimal, true
	}
	return decimal.Zero, true
}
