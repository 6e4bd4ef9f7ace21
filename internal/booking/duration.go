package booking

import (
	"math"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// PromoThresholdDays is the rental length from which the promotional daily
// rate applies.
const PromoThresholdDays = 7

// BillableDays counts the calendar days of w including the pickup day.
// Time of day is ignored, so a same-day rental is one day.
func BillableDays(w model.TimeWindow) int {
	d := w.StartDate.DaysUntil(w.EndDate)
	if d < 0 {
		d = -d
	}
	return d + 1
}

// UsesPromoTier reports whether a rental of the given length is priced at
// the promotional tier.  The decision covers the whole booking.
func UsesPromoTier(days int) bool { return days >= PromoThresholdDays }

// Quote is the priced form of a booking: lines with their effective rates
// and the totals derived from them.
type Quote struct {
	BillableDays      int                 `json:"billable_days"`
	PromoApplied      bool                `json:"promo_applied"`
	Lines             []model.LineItem    `json:"lines"`
	Services          []model.ServiceLine `json:"services"`
	RentalCents       int64               `json:"rental_cents"`
	ServicesCents     int64               `json:"services_cents"`
	TotalPriceCents   int64               `json:"total_price_cents"`
	DepositTotalCents int64               `json:"deposit_total_cents"`
}

// snapshotLine captures the catalog rates of r for a new line.
func snapshotLine(r model.Resource, qty int) model.LineItem {
	l := model.LineItem{
		ResourceID:         r.ID,
		ResourceName:       r.Name,
		Quantity:           qty,
		PricePerDayCents:   r.PricePerDayCents,
		StandardPriceCents: r.PricePerDayCents,
		DepositCents:       r.DepositCents,
	}
	if r.PromoPricePerDayCents != nil {
		p := *r.PromoPricePerDayCents
		l.PromoPriceCents = &p
	}
	return l
}

func snapshotService(s model.Service, qty int) model.ServiceLine {
	return model.ServiceLine{
		ServiceID:      s.ID,
		Name:           s.Name,
		Quantity:       qty,
		UnitPriceCents: s.UnitPriceCents,
	}
}

// PriceLines sets the effective daily rate of every line from its snapshots
// and totals the booking.  The inputs are not modified.  Negative rates or
// totals beyond int64 cents are rejected as an invalid request.
func PriceLines(days int, lines []model.LineItem, services []model.ServiceLine) (Quote, error) {
	q := Quote{
		BillableDays: days,
		PromoApplied: UsesPromoTier(days),
		Lines:        make([]model.LineItem, len(lines)),
		Services:     make([]model.ServiceLine, len(services)),
	}
	ok := true
	mul := func(a, b int64) int64 {
		p, fine := mulCents(a, b)
		ok = ok && fine
		return p
	}
	add := func(a, b int64) int64 {
		sum, fine := addCents(a, b)
		ok = ok && fine
		return sum
	}
	for i, l := range lines {
		l.PricePerDayCents = l.StandardPriceCents
		if q.PromoApplied && l.PromoPriceCents != nil {
			l.PricePerDayCents = *l.PromoPriceCents
		}
		q.Lines[i] = l
		q.RentalCents = add(q.RentalCents, mul(mul(l.PricePerDayCents, int64(l.Quantity)), int64(days)))
		q.DepositTotalCents = add(q.DepositTotalCents, mul(l.DepositCents, int64(l.Quantity)))
	}
	for i, s := range services {
		q.Services[i] = s
		q.ServicesCents = add(q.ServicesCents, mul(s.UnitPriceCents, int64(s.Quantity)))
	}
	q.TotalPriceCents = add(q.RentalCents, q.ServicesCents)
	if !ok {
		return Quote{}, invalidRequest("booking total is out of range")
	}
	return q, nil
}

// mulCents multiplies non-negative amounts; false means a negative operand
// or an int64 overflow.
func mulCents(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

func addCents(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || b > math.MaxInt64-a {
		return 0, false
	}
	return a + b, true
}
