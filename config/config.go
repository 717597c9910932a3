package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Storage  StorageConfig  `yaml:"storage"`
	Session  SessionConfig  `yaml:"session"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Payment  PaymentConfig  `yaml:"payment"`
	Layout   LayoutConfig   `yaml:"layout"`
	Fares    FaresConfig    `yaml:"fares"`
	Flights  FlightsConfig  `yaml:"flights"`
}

type HTTPConfig struct {
	Address     string   `yaml:"address"`
	SwaggerDir  string   `yaml:"swagger_dir"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

// StorageConfig selects the backend holding completed bookings: "postgres" or "badger".
type StorageConfig struct {
	Driver    string `yaml:"driver"`
	BadgerDir string `yaml:"badger_dir"`
}

// SessionConfig selects where in-progress checkout sessions live: "redis" or "memory".
type SessionConfig struct {
	Driver     string `yaml:"driver"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret"`
	TokenExpiryMinutes int    `yaml:"token_expiry_minutes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type PaymentConfig struct {
	CardGatewayDelayMS    int      `yaml:"card_gateway_delay_ms"`
	WalletRedirectDelayMS int      `yaml:"wallet_redirect_delay_ms"`
	ManualCardDelayMS     int      `yaml:"manual_card_delay_ms"`
	// DeclinedCards are full card numbers; spaces and dashes are ignored.
	DeclinedCards         []string `yaml:"declined_cards"`
}

type RowRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

func (r RowRange) Contains(row int) bool {
	return row >= r.From && row <= r.To
}

type LayoutConfig struct {
	Rows          int      `yaml:"rows"`
	Columns       []string `yaml:"columns"`
	AisleAfter    []int    `yaml:"aisle_after"`
	BusinessRows  RowRange `yaml:"business_rows"`
	PremiumRows   RowRange `yaml:"premium_rows"`
	EmergencyRows []int    `yaml:"emergency_rows"`
	WingRows      []int    `yaml:"wing_rows"`
}

type BaggageOptionConfig struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	WeightKg          int    `yaml:"weight_kg"`
	PricePerItemCents int64  `yaml:"price_per_item_cents"`
	MaxQuantity       int    `yaml:"max_quantity"`
	IncludedMinimum   int    `yaml:"included_minimum"`
}

type FarePlanConfig struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	SurchargeCents int64  `yaml:"surcharge_cents"`
}

type FaresConfig struct {
	ClassBaseCents     map[string]int64      `yaml:"class_base_cents"`
	TypeSurchargeCents map[string]int64      `yaml:"type_surcharge_cents"`
	Baggage            []BaggageOptionConfig `yaml:"baggage"`
	MandatoryBaggage   string                `yaml:"mandatory_baggage"`
	FarePlans          []FarePlanConfig      `yaml:"fare_plans"`
	DefaultFarePlan    string                `yaml:"default_fare_plan"`
}

type FlightsConfig struct {
	CacheTTLSeconds int          `yaml:"cache_ttl_seconds"`
	Seed            []FlightSeed `yaml:"seed"`
}

// FlightSeed is a catalog entry loaded into the badger store on startup.
type FlightSeed struct {
	ID              int64     `yaml:"id"`
	Airline         string    `yaml:"airline"`
	FromAirport     string    `yaml:"from_airport"`
	ToAirport       string    `yaml:"to_airport"`
	DepartureTime   time.Time `yaml:"departure_time"`
	DurationMinutes int       `yaml:"duration_minutes"`
	Stops           int       `yaml:"stops"`
	TotalSeats      int       `yaml:"total_seats"`
	PriceCents      int64     `yaml:"price_cents"`
}

// LoadEnv reads an optional .env file into the process environment.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Session.Driver == "" {
		c.Session.Driver = "redis"
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 30
	}
	if c.Auth.TokenExpiryMinutes == 0 {
		c.Auth.TokenExpiryMinutes = 24 * 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Payment.CardGatewayDelayMS == 0 {
		c.Payment.CardGatewayDelayMS = 2000
	}
	if c.Payment.ManualCardDelayMS == 0 {
		c.Payment.ManualCardDelayMS = 2000
	}
	if c.Payment.WalletRedirectDelayMS == 0 {
		c.Payment.WalletRedirectDelayMS = 1500
	}
	if c.Flights.CacheTTLSeconds == 0 {
		c.Flights.CacheTTLSeconds = 60
	}
	if c.Layout.Rows == 0 {
		c.Layout = DefaultLayout()
	}
	if len(c.Fares.Baggage) == 0 && len(c.Fares.FarePlans) == 0 {
		c.Fares = DefaultFares()
	}
}

// DefaultLayout is a single-aisle cabin: 30 rows of A-F with the aisle between C and D.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		Rows:          30,
		Columns:       []string{"A", "B", "C", "D", "E", "F"},
		AisleAfter:    []int{2},
		BusinessRows:  RowRange{From: 1, To: 4},
		PremiumRows:   RowRange{From: 11, To: 15},
		EmergencyRows: []int{10, 20},
		WingRows:      []int{16, 17, 18, 19, 20, 21},
	}
}

func DefaultFares() FaresConfig {
	return FaresConfig{
		ClassBaseCents: map[string]int64{
			"business": 5000,
			"premium":  2000,
			"economy":  0,
		},
		TypeSurchargeCents: map[string]int64{
			"emergency-exit": 2500,
			"window":         1500,
			"aisle":          1000,
			"middle":         0,
		},
		Baggage: []BaggageOptionConfig{
			{ID: "carry-on", Name: "Carry-on bag", WeightKg: 8, MaxQuantity: 1, IncludedMinimum: 1},
			{ID: "checked-23", Name: "Checked bag (23kg)", WeightKg: 23, PricePerItemCents: 3500, MaxQuantity: 3},
			{ID: "checked-32", Name: "Checked bag (32kg)", WeightKg: 32, PricePerItemCents: 6000, MaxQuantity: 2},
		},
		MandatoryBaggage: "carry-on",
		FarePlans: []FarePlanConfig{
			{ID: "economy", Name: "Economy", SurchargeCents: 0},
			{ID: "flexible", Name: "Flexible", SurchargeCents: 5000},
			{ID: "premium", Name: "Premium", SurchargeCents: 12000},
		},
		DefaultFarePlan: "economy",
	}
}
