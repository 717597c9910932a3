package domain

type BaggageSelection struct {
	OptionID   string `json:"option_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}
