package main

import (
	// Go Internal Packages
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	// Local Packages
	clients "bgmock-twin/clients"
	config "bgmock-twin/config"
	helpers "bgmock-twin/helpers"
	kafka "bgmock-twin/kafka"
	models "bgmock-twin/models"
	mongodb "bgmock-twin/repositories/mongodb"
	redis "bgmock-twin/repositories/redis"
	chaos "bgmock-twin/services/chaos"
	load "bgmock-twin/services/load"
	orchestrator "bgmock-twin/services/orchestrator"
	processors "bgmock-twin/services/processors"
	state "bgmock-twin/services/state"

	// External Packages
	"github.com/alecthomas/kingpin/v2"
	_ "github.com/jsternberg/zap-logfmt"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/shopspring/decimal"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

var (
	configPath = kingpin.Flag("config", "Path to the application config file").Short('c').Default("config.yml").String()

	runCmd          = kingpin.Command("run", "Mirror the bank network: subscribe to the flow topics, seed accounts and monitor health").Default()
	runTransactions = runCmd.Flag("transactions", "Random transactions to send after start-up").Default("0").Int()
	runDelay        = runCmd.Flag("delay", "Pause between random transactions").Default("2s").Duration()

	loadCmd      = kingpin.Command("load", "Generate synthetic load and report performance statistics")
	loadTPS      = loadCmd.Flag("tps", "Target transactions per second (overrides load.tps)").Float64()
	loadDuration = loadCmd.Flag("duration", "Session length (overrides load.duration)").Duration()
	loadProfile  = loadCmd.Flag("profile", "constant, ramp, spike or wave (overrides load.profile)").String()

	latencyCmd     = kingpin.Command("latency", "Measure synthetic latency without pacing")
	latencySamples = latencyCmd.Flag("samples", "Number of attempts").Default("100").Int()

	scenarioCmd   = kingpin.Command("scenario", "Run end-to-end scenarios against the bank network")
	scenarioNames = scenarioCmd.Arg("name", "Scenarios to run (default: all)").Strings()
)

// LoadConfig loads the default configuration and overrides it with the config file
// specified by the path defined in the config flag. It returns the selected command.
func LoadConfig() (*koanf.Koanf, string) {
	command := kingpin.Parse()
	k := koanf.New(".")
	_ = k.Load(rawbytes.Provider(config.DefaultConfig), yaml.Parser())
	if *configPath != "" {
		_ = k.Load(file.Provider(*configPath), yaml.Parser())
	}
	return k, command
}

func main() {
	k, command := LoadConfig()
	appKonf := config.Config{}

	// Unmarshalling config into struct
	err := k.Unmarshal("", &appKonf)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	appKonf = config.LoadSecrets(appKonf)

	// Validate the config loaded
	if err = appKonf.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if !appKonf.IsProdMode {
		k.Print()
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "logfmt"
	_ = cfg.Level.UnmarshalText([]byte(appKonf.Logger.Level))
	cfg.InitialFields = make(map[string]any)
	cfg.InitialFields["host"], _ = os.Hostname()
	cfg.InitialFields["service"] = appKonf.Application
	cfg.OutputPaths = []string{"stderr"}
	logger, _ := cfg.Build()
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := state.NewStore(logger)
	engine := newChaosEngine(appKonf.Chaos, logger)

	switch command {
	case runCmd.FullCommand():
		err = run(ctx, appKonf, store, engine, logger)
	case loadCmd.FullCommand():
		err = generateLoad(ctx, appKonf, store, engine, logger)
	case latencyCmd.FullCommand():
		err = measureLatency(ctx, appKonf, store, engine, logger)
	case scenarioCmd.FullCommand():
		err = runScenarios(ctx, appKonf, store, engine, logger)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// newChaosEngine builds the engine and injects the configured start-up scenarios.
func newChaosEngine(conf config.Chaos, logger *zap.Logger) *chaos.Engine {
	engine := chaos.NewEngine(logger)
	if !conf.Enabled {
		engine.Disable()
	}
	for _, scenario := range conf.Scenarios {
		failure, err := scenario.Failure()
		if err != nil {
			logger.Fatal("invalid chaos scenario", zap.Error(err))
		}
		if _, err := engine.Inject(scenario.Service, failure, scenario.Duration); err != nil {
			logger.Fatal("cannot inject chaos scenario", zap.String("kind", scenario.Kind), zap.Error(err))
		}
	}
	return engine
}

type collaborators struct {
	bankA    *clients.BankClient
	bankB    *clients.BankClient
	clearing *clients.ClearingClient
}

// newCollaborators routes every REST client through the chaos engine and
// records its calls in the store.
func newCollaborators(conf config.Config, store *state.Store, engine *chaos.Engine, logger *zap.Logger) collaborators {
	a, b := conf.Banks.BankA, conf.Banks.BankB
	return collaborators{
		bankA:    clients.NewBankClient(a.Name, a.URL, a.ClearingNumber, chaos.Client(engine, a.Service, conf.HTTP.Timeout), store, logger),
		bankB:    clients.NewBankClient(b.Name, b.URL, b.ClearingNumber, chaos.Client(engine, b.Service, conf.HTTP.Timeout), store, logger),
		clearing: clients.NewClearingClient(conf.Clearing.URL, chaos.Client(engine, conf.Clearing.Service, conf.HTTP.Timeout), store, logger),
	}
}

func run(ctx context.Context, conf config.Config, store *state.Store, engine *chaos.Engine, logger *zap.Logger) error {
	c := newCollaborators(conf, store, engine, logger)

	publisher := kafka.NewPublisher(ctx, conf.Kafka.Brokers, kprom.NewMetrics("bgmock_producer"), logger)
	defer publisher.Close()

	var dlq processors.DeadLetterSink
	if conf.Redis.Enabled {
		redisClient, err := redis.Connect(ctx, conf.Redis.URI, conf.Redis.Password)
		if err != nil {
			return fmt.Errorf("cannot create redis client: %w", err)
		}
		defer func() {
			_ = redisClient.Close()
		}()

		dlq = redis.NewDeadLetterQueue(redisClient, conf.Redis.DLQList, logger)
		snapshots := redis.NewSnapshotPublisher(redisClient, conf.Redis.SnapshotKey, conf.Redis.SnapshotTTL, logger)
		go snapshots.Run(ctx, store, conf.Redis.SnapshotInterval)
	}

	processor := processors.NewFlowProcessor(logger, store, conf.Kafka.Topics, dlq)
	var subscriptions []orchestrator.Subscription
	if publisher.Available() {
		for _, topic := range conf.Kafka.Topics.All() {
			consumer, err := kafka.NewConsumer(&kafka.ConsumerConfig{
				Brokers:        conf.Kafka.Brokers,
				Group:          conf.Kafka.GroupID,
				Topic:          topic,
				RecordsPerPoll: conf.Kafka.RecordsPerPoll,
				PollTimeout:    conf.Kafka.PollTimeout,
			}, processor, kprom.NewMetrics("bgmock_"+strings.ReplaceAll(topic, ".", "_")), logger)
			if err != nil {
				return fmt.Errorf("cannot create consumer for %s: %w", topic, err)
			}
			subscriptions = append(subscriptions, consumer)
		}
	}

	orch := orchestrator.NewOrchestrator(logger, store, c.bankA, c.bankB, c.clearing, publisher, conf.Kafka.Topics,
		orchestrator.WithHealthInterval(conf.Health.Interval))
	orch.Start(ctx, subscriptions...)

	if *runTransactions > 0 {
		if _, err := orch.RunSimulation(ctx, *runTransactions, *runDelay); err != nil && ctx.Err() == nil {
			return err
		}
	}

	<-ctx.Done()
	orch.Unsubscribe()
	orch.Wait()
	return helpers.PrintStruct(os.Stdout, store.Snapshot())
}

func newDriver(conf config.Config, store *state.Store, engine *chaos.Engine, logger *zap.Logger) *load.Driver {
	return load.NewDriver(logger,
		load.WithChaos(engine, conf.Load.Service),
		load.WithRecorder(store),
		load.WithClearingNumber(conf.Banks.BankA.ClearingNumber))
}

func generateLoad(ctx context.Context, conf config.Config, store *state.Store, engine *chaos.Engine, logger *zap.Logger) error {
	req := load.Request{
		TargetTPS: conf.Load.TPS,
		Duration:  conf.Load.Duration,
		Pairs:     load.DefaultAccountPairs,
	}
	if *loadTPS > 0 {
		req.TargetTPS = *loadTPS
	}
	if *loadDuration > 0 {
		req.Duration = *loadDuration
	}
	profile := conf.Load.Profile
	if *loadProfile != "" {
		profile = *loadProfile
	}
	var ok bool
	if req.Profile, ok = models.ParseLoadProfile(profile); !ok {
		return fmt.Errorf("unknown load profile %q", profile)
	}

	stats, err := newDriver(conf, store, engine, logger).GenerateLoad(ctx, req)
	if err != nil {
		return err
	}

	if conf.Mongo.Enabled {
		mongoCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		mongoClient, err := mongodb.Connect(mongoCtx, conf.Mongo.URI, 5*time.Second)
		if err != nil {
			return fmt.Errorf("cannot create mongo client: %w", err)
		}
		defer func() {
			_ = mongoClient.Disconnect(mongoCtx)
		}()

		reports := mongodb.NewReportRepository(mongoClient, conf.Mongo.Database, conf.Mongo.Collection)
		if err := reports.InsertReport(mongoCtx, stats); err != nil {
			return fmt.Errorf("cannot store load report: %w", err)
		}
		logger.Info("stored load report", zap.String("session_id", stats.SessionID))
	}

	return helpers.PrintStruct(os.Stdout, stats)
}

func measureLatency(ctx context.Context, conf config.Config, store *state.Store, engine *chaos.Engine, logger *zap.Logger) error {
	summary, err := newDriver(conf, store, engine, logger).MeasureLatency(ctx, *latencySamples)
	if err != nil {
		return err
	}
	return helpers.PrintStruct(os.Stdout, summary)
}

func runScenarios(ctx context.Context, conf config.Config, store *state.Store, engine *chaos.Engine, logger *zap.Logger) error {
	c := newCollaborators(conf, store, engine, logger)
	env := orchestrator.Env{
		BankA:    c.bankA,
		BankB:    c.bankB,
		Clearing: c.clearing,
		Logger:   logger,
		Fixture: orchestrator.Fixture{
			AccountNumber:   conf.Scenario.AccountNumber,
			BankgoodNumberA: conf.Scenario.BankgoodNumberA,
			BankgoodNumberB: conf.Scenario.BankgoodNumberB,
			InitialBalance:  decimal.NewFromFloat(conf.Scenario.InitialBalance),
			Amount:          decimal.NewFromFloat(conf.Scenario.Amount),
			WaitTimeout:     conf.Scenario.WaitTimeout,
			PollInterval:    conf.Scenario.PollInterval,
		},
	}

	available := []orchestrator.Scenario{
		&orchestrator.InterbankTransfer{Env: env, Transfers: 1},
		&orchestrator.ClearingOutage{
			Env:       env,
			Chaos:     engine,
			Service:   conf.Clearing.Service,
			Outage:    conf.Scenario.OutageDuration,
			Transfers: conf.Scenario.Transfers,
		},
	}

	selected := available
	if len(*scenarioNames) > 0 {
		selected = nil
		for _, name := range *scenarioNames {
			found := false
			for _, s := range available {
				if strings.EqualFold(s.Name(), name) {
					selected = append(selected, s)
					found = true
				}
			}
			if !found {
				return fmt.Errorf("unknown scenario %q", name)
			}
		}
	}

	summary := orchestrator.RunScenarios(ctx, logger, 3*time.Second, nil, selected...)
	if err := helpers.PrintStruct(os.Stdout, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", summary.Failed, len(summary.Results))
	}
	return nil
}
