package config

import (
	// Go Internal Packages
	"fmt"
	"os"
	"strings"
	"time"

	// Local Packages
	errors "bgmock-twin/errors"
	models "bgmock-twin/models"
)

var DefaultConfig = []byte(`
application: "bgmock-twin"

logger:
  level: "debug"

is_prod_mode: false

kafka:
  brokers:
    - "localhost:9092"
  group_id: "digital-twin-simulator"
  records_per_poll: 100
  poll_timeout: "1s"
  topics:
    initiated: "transactions.initiated"
    forwarded: "transactions.forwarded"
    processed: "transactions.processed"
    completed: "transactions.completed"

banks:
  bank_a:
    name: "Bank A"
    service: "bank-a"
    url: "http://localhost:30081"
    clearing_number: "000001"
  bank_b:
    name: "Bank B"
    service: "bank-b"
    url: "http://localhost:30082"
    clearing_number: "000002"

clearing:
  service: "clearing"
  url: "http://localhost:30083"

http:
  timeout: "15s"

health:
  interval: "10s"

redis:
  enabled: false
  uri: "localhost:6379"
  password: ""
  snapshot_key: "bgmock:snapshot"
  snapshot_ttl: "5m"
  snapshot_interval: "5s"
  dlq_list: "bgmock:malformed-events"

mongo:
  enabled: false
  uri: "mongodb://localhost:27017"
  database: "bgmock"
  collection: "load_reports"

chaos:
  enabled: true
  scenarios: []

scenario:
  account_number: "5555555555"
  bankgood_number_a: "BG-000001"
  bankgood_number_b: "BG-000002"
  initial_balance: 10000
  amount: 100
  transfers: 10
  outage_duration: "20s"
  wait_timeout: "30s"
  poll_interval: "1s"

load:
  tps: 10
  duration: "60s"
  profile: "constant"
  service: "bank-a"
`)

type Config struct {
	Application string   `koanf:"application"`
	Logger      Logger   `koanf:"logger"`
	IsProdMode  bool     `koanf:"is_prod_mode"`
	Kafka       Kafka    `koanf:"kafka"`
	Banks       Banks    `koanf:"banks"`
	Clearing    Clearing `koanf:"clearing"`
	HTTP        HTTP     `koanf:"http"`
	Health      Health   `koanf:"health"`
	Redis       Redis    `koanf:"redis"`
	Mongo       Mongo    `koanf:"mongo"`
	Chaos       Chaos    `koanf:"chaos"`
	Scenario    Scenario `koanf:"scenario"`
	Load        Load     `koanf:"load"`
}

type Logger struct {
	Level string `koanf:"level"`
}

type Kafka struct {
	Brokers        []string      `koanf:"brokers"`
	GroupID        string        `koanf:"group_id"`
	RecordsPerPoll int           `koanf:"records_per_poll"`
	PollTimeout    time.Duration `koanf:"poll_timeout"`
	Topics         Topics        `koanf:"topics"`
}

type Topics struct {
	Initiated string `koanf:"initiated"`
	Forwarded string `koanf:"forwarded"`
	Processed string `koanf:"processed"`
	Completed string `koanf:"completed"`
}

// All returns the four stage topics in flow order.
func (t Topics) All() []string {
	return []string{t.Initiated, t.Forwarded, t.Processed, t.Completed}
}

type Banks struct {
	BankA Bank `koanf:"bank_a"`
	BankB Bank `koanf:"bank_b"`
}

type Bank struct {
	Name           string `koanf:"name"`
	Service        string `koanf:"service"`
	URL            string `koanf:"url"`
	ClearingNumber string `koanf:"clearing_number"`
}

type Clearing struct {
	Service string `koanf:"service"`
	URL     string `koanf:"url"`
}

type HTTP struct {
	Timeout time.Duration `koanf:"timeout"`
}

type Health struct {
	Interval time.Duration `koanf:"interval"`
}

type Redis struct {
	Enabled          bool          `koanf:"enabled"`
	URI              string        `koanf:"uri"`
	Password         string        `koanf:"password"`
	SnapshotKey      string        `koanf:"snapshot_key"`
	SnapshotTTL      time.Duration `koanf:"snapshot_ttl"`
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`
	DLQList          string        `koanf:"dlq_list"`
}

type Mongo struct {
	Enabled    bool   `koanf:"enabled"`
	URI        string `koanf:"uri"`
	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`
}

type Chaos struct {
	Enabled   bool            `koanf:"enabled"`
	Scenarios []ChaosScenario `koanf:"scenarios"`
}

// ChaosScenario is a failure injected at start-up.
type ChaosScenario struct {
	Kind        string        `koanf:"kind"`
	Service     string        `koanf:"service"`
	Duration    time.Duration `koanf:"duration"`
	Delay       time.Duration `koanf:"delay"`
	Timeout     time.Duration `koanf:"timeout"`
	Probability float64       `koanf:"probability"`
}

// Failure converts the scenario into its typed failure.
func (s ChaosScenario) Failure() (models.Failure, error) {
	switch models.FailureKind(strings.ToUpper(s.Kind)) {
	case models.NetworkDelayKind:
		return models.NetworkDelay{Delay: s.Delay}, nil
	case models.ServiceDownKind:
		return models.ServiceDown{}, nil
	case models.RandomFailureKind:
		return models.RandomFailure{Probability: s.Probability}, nil
	case models.TimeoutKind:
		return models.Timeout{Timeout: s.Timeout}, nil
	case models.InvalidResponseKind:
		return models.InvalidResponse{Probability: s.Probability}, nil
	}
	return nil, errors.E(errors.Invalid, fmt.Sprintf("unknown failure kind %q", s.Kind), nil)
}

// Scenario holds the fixture used by the end-to-end scenarios.
type Scenario struct {
	AccountNumber   string        `koanf:"account_number"`
	BankgoodNumberA string        `koanf:"bankgood_number_a"`
	BankgoodNumberB string        `koanf:"bankgood_number_b"`
	InitialBalance  float64       `koanf:"initial_balance"`
	Amount          float64       `koanf:"amount"`
	Transfers       int           `koanf:"transfers"`
	OutageDuration  time.Duration `koanf:"outage_duration"`
	WaitTimeout     time.Duration `koanf:"wait_timeout"`
	PollInterval    time.Duration `koanf:"poll_interval"`
}

type Load struct {
	TPS      float64       `koanf:"tps"`
	Duration time.Duration `koanf:"duration"`
	Profile  string        `koanf:"profile"`
	Service  string        `koanf:"service"`
}

// LoadSecrets overrides the config with the environment of the deployment
func LoadSecrets(k Config) Config {
	if brokers := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); brokers != "" {
		k.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if groupID := os.Getenv("KAFKA_GROUP_ID"); groupID != "" {
		k.Kafka.GroupID = groupID
	}
	if url := os.Getenv("BANK_A_URL"); url != "" {
		k.Banks.BankA.URL = url
	}
	if url := os.Getenv("BANK_B_URL"); url != "" {
		k.Banks.BankB.URL = url
	}
	if url := os.Getenv("CLEARING_SERVICE_URL"); url != "" {
		k.Clearing.URL = url
	}
	if uri := os.Getenv("REDIS_URI"); uri != "" {
		k.Redis.URI = uri
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		k.Mongo.URI = uri
	}
	if mode := os.Getenv("IS_PROD_MODE"); mode != "" {
		k.IsProdMode = mode == "true"
	}
	return k
}

// Validate validates the configuration
func (c *Config) Validate() error {
	ve := errors.ValidationErrs()

	if c.Application == "" {
		ve.Add("application", "cannot be empty")
	}
	if c.Logger.Level == "" {
		ve.Add("logger.level", "cannot be empty")
	}
	if len(c.Kafka.Brokers) == 0 {
		ve.Add("kafka.brokers", "cannot be empty")
	}
	if c.Kafka.GroupID == "" {
		ve.Add("kafka.group_id", "cannot be empty")
	}
	for _, topic := range c.Kafka.Topics.All() {
		if topic == "" {
			ve.Add("kafka.topics", "all four stage topics must be set")
			break
		}
	}
	if c.Banks.BankA.URL == "" {
		ve.Add("banks.bank_a.url", "cannot be empty")
	}
	if c.Banks.BankB.URL == "" {
		ve.Add("banks.bank_b.url", "cannot be empty")
	}
	if c.Clearing.URL == "" {
		ve.Add("clearing.url", "cannot be empty")
	}
	if c.Health.Interval <= 0 {
		ve.Add("health.interval", "must be positive")
	}
	if c.Redis.Enabled && c.Redis.URI == "" {
		ve.Add("redis.uri", "cannot be empty")
	}
	if c.Mongo.Enabled && c.Mongo.URI == "" {
		ve.Add("mongo.uri", "cannot be empty")
	}
	if c.Scenario.AccountNumber == "" {
		ve.Add("scenario.account_number", "cannot be empty")
	}
	if c.Scenario.BankgoodNumberA == "" || c.Scenario.BankgoodNumberB == "" {
		ve.Add("scenario.bankgood_number", "both bankgood numbers must be set")
	}
	if c.Scenario.Amount <= 0 {
		ve.Add("scenario.amount", "must be positive")
	}
	if c.Scenario.Transfers <= 0 {
		ve.Add("scenario.transfers", "must be positive")
	}
	if c.Scenario.OutageDuration <= 0 {
		ve.Add("scenario.outage_duration", "must be positive")
	}
	if c.Scenario.WaitTimeout <= 0 || c.Scenario.PollInterval <= 0 {
		ve.Add("scenario.wait_timeout", "wait timeout and poll interval must be positive")
	}
	if _, ok := models.ParseLoadProfile(c.Load.Profile); !ok {
		ve.Add("load.profile", "must be one of constant, ramp, spike, wave")
	}
	if c.Load.TPS <= 0 {
		ve.Add("load.tps", "must be positive")
	}
	for i, s := range c.Chaos.Scenarios {
		field := fmt.Sprintf("chaos.scenarios[%d]", i)
		f, err := s.Failure()
		if err != nil {
			ve.Add(field, err.Error())
			continue
		}
		if err := f.Validate(); err != nil {
			ve.Add(field, err.Error())
		}
		if s.Duration <= 0 {
			ve.Add(field+".duration", "must be positive")
		}
	}

	return ve.Err()
}
