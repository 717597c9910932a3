package fares

import (
	"testing"

	"github.com/Domenick1991/skycheckout/config"
	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	table := Default()

	assert.Equal(t, int64(5000), table.ClassBase(domain.SeatClassBusiness))
	assert.Equal(t, int64(2000), table.ClassBase(domain.SeatClassPremium))
	assert.Equal(t, int64(0), table.ClassBase(domain.SeatClassEconomy))
	assert.Equal(t, int64(2500), table.TypeSurcharge(domain.SeatTypeEmergencyExit))
	assert.Equal(t, int64(1500), table.TypeSurcharge(domain.SeatTypeWindow))
	assert.Equal(t, int64(1000), table.TypeSurcharge(domain.SeatTypeAisle))
	assert.Equal(t, int64(0), table.TypeSurcharge(domain.SeatTypeMiddle))

	assert.Equal(t, "carry-on", table.MandatoryBaggage().ID)
	assert.Equal(t, "economy", table.DefaultFarePlan().ID)

	plan, ok := table.FarePlan("flexible")
	require.True(t, ok)
	assert.Equal(t, int64(5000), plan.SurchargeCents)

	ids := make([]string, 0)
	for _, o := range table.BaggageOptions() {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"carry-on", "checked-23", "checked-32"}, ids)
	assert.Len(t, table.FarePlans(), 3)
}

func TestBaggageOption_PriceFor(t *testing.T) {
	included := BaggageOption{ID: "carry-on", PricePerItemCents: 2000, MaxQuantity: 3, IncludedMinimum: 1}
	assert.Equal(t, int64(0), included.PriceFor(1))
	assert.Equal(t, int64(2000), included.PriceFor(2))
	assert.Equal(t, int64(4000), included.PriceFor(3))

	paid := BaggageOption{ID: "checked-23", PricePerItemCents: 3500, MaxQuantity: 3}
	assert.Equal(t, int64(0), paid.PriceFor(0))
	assert.Equal(t, int64(7000), paid.PriceFor(2))
}

func TestNew_Validation(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(cfg *config.FaresConfig)
	}{
		{
			name:   "negative class base",
			modify: func(cfg *config.FaresConfig) { cfg.ClassBaseCents["business"] = -1 },
		},
		{
			name:   "negative type surcharge",
			modify: func(cfg *config.FaresConfig) { cfg.TypeSurchargeCents["aisle"] = -1 },
		},
		{
			name:   "unknown mandatory baggage",
			modify: func(cfg *config.FaresConfig) { cfg.MandatoryBaggage = "trunk" },
		},
		{
			name:   "mandatory baggage without minimum",
			modify: func(cfg *config.FaresConfig) { cfg.MandatoryBaggage = "checked-23" },
		},
		{
			name: "duplicate baggage",
			modify: func(cfg *config.FaresConfig) {
				cfg.Baggage = append(cfg.Baggage, cfg.Baggage[1])
			},
		},
		{
			name:   "minimum above max",
			modify: func(cfg *config.FaresConfig) { cfg.Baggage[0].IncludedMinimum = 2 },
		},
		{
			name:   "negative plan surcharge",
			modify: func(cfg *config.FaresConfig) { cfg.FarePlans[1].SurchargeCents = -5 },
		},
		{
			name:   "unknown default plan",
			modify: func(cfg *config.FaresConfig) { cfg.DefaultFarePlan = "gold" },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultFares()
			tc.modify(&cfg)
			table, err := New(cfg)
			assert.Error(t, err)
			assert.Nil(t, table)
		})
	}
}
