package model

// Resource is a rentable equipment type as stored in the `resources`
// table.  Prices are in cents.  The booking engine only reads resources;
// price and active edits belong to the catalog administration path.
//
// Fields:
//  ID                    – primary key identifier.
//  Name                  – display name, e.g. "Drill-152".
//  PricePerDayCents      – standard daily rate.
//  PromoPricePerDayCents – optional daily rate for long rentals.
//  DepositCents          – refundable deposit per unit.
//  Active                – inactive resources cannot be booked.
type Resource struct {
	ID                    uint64 `json:"id"`
	Name                  string `json:"name"`
	PricePerDayCents      int64  `json:"price_per_day_cents"`
	PromoPricePerDayCents *int64 `json:"promo_price_per_day_cents,omitempty"`
	DepositCents          int64  `json:"deposit_cents"`
	Active                bool   `json:"active"`
}

// Service is a flat add-on (delivery, cleaning, blade set) that can be
// attached to a reservation.  Services carry no availability constraint.
type Service struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Active         bool   `json:"active"`
}
