package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/jiaming2012/daily-consolidator/src/consolidator"
	"github.com/jiaming2012/daily-consolidator/src/driver"
	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
	"github.com/jiaming2012/daily-consolidator/src/eventproducers"
	"github.com/jiaming2012/daily-consolidator/src/eventpubsub"
	"github.com/jiaming2012/daily-consolidator/src/eventservices"
	"github.com/jiaming2012/daily-consolidator/src/logger"
	"github.com/jiaming2012/daily-consolidator/src/report"
	"github.com/jiaming2012/daily-consolidator/src/utils"
)

type RunArgs struct {
	GoEnv         string
	ConfigPath    string
	InputPath     string
	Source        string
	Symbol        string
	From          string
	To            string
	Until         string
	Timespan      string
	Multiplier    int
	ProbeInterval string
	OutputPath    string
}

type RunResult struct {
	Replay driver.ReplayResult
	Bars   int
}

type consolidatedRecord[R any] interface {
	consolidator.Record[R]
	eventmodels.ConsolidatedBar
}

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/consolidate/main.go --config consolidators.yaml --symbol EURUSD --input quotes.csv",
	Short: "Replay recorded observations through a daily consolidator",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		runArgs := RunArgs{GoEnv: goEnv}

		for flag, dest := range map[string]*string{
			"config":         &runArgs.ConfigPath,
			"input":          &runArgs.InputPath,
			"source":         &runArgs.Source,
			"symbol":         &runArgs.Symbol,
			"from":           &runArgs.From,
			"to":             &runArgs.To,
			"until":          &runArgs.Until,
			"timespan":       &runArgs.Timespan,
			"probe-interval": &runArgs.ProbeInterval,
			"output":         &runArgs.OutputPath,
		} {
			if *dest, err = cmd.Flags().GetString(flag); err != nil {
				log.Fatalf("error getting %s: %v", flag, err)
			}
		}

		if runArgs.Multiplier, err = cmd.Flags().GetInt("multiplier"); err != nil {
			log.Fatalf("error getting multiplier: %v", err)
		}

		result, err := Run(cmd.Context(), runArgs)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		fmt.Printf("observations: %d, dropped: %d, probes: %d, bars: %d\n",
			result.Replay.Observations, result.Replay.Dropped, result.Replay.Probes, result.Bars)
	},
}

func Run(ctx context.Context, args RunArgs) (RunResult, error) {
	if projectsDir := os.Getenv("PROJECTS_DIR"); projectsDir != "" {
		if err := utils.InitEnvironmentVariables(projectsDir, args.GoEnv); err != nil {
			return RunResult{}, fmt.Errorf("error loading environment variables: %w", err)
		}
	}

	logger.Init(os.Getenv("LOG_LEVEL"))

	configPath := args.ConfigPath
	if configPath == "" {
		configPath = os.Getenv("CONSOLIDATOR_CONFIG")
	}

	if configPath == "" {
		return RunResult{}, fmt.Errorf("missing --config flag or CONSOLIDATOR_CONFIG environment variable")
	}

	config, err := utils.LoadConsolidatorConfig(configPath)
	if err != nil {
		return RunResult{}, fmt.Errorf("error loading config: %w", err)
	}

	cfg, err := config.GetConsolidator(eventmodels.NewSymbol(args.Symbol))
	if err != nil {
		return RunResult{}, fmt.Errorf("error loading config: %w", err)
	}

	probeInterval, err := config.GetProbeInterval(time.Minute)
	if err != nil {
		return RunResult{}, fmt.Errorf("error loading config: %w", err)
	}

	if args.ProbeInterval != "" {
		if probeInterval, err = time.ParseDuration(args.ProbeInterval); err != nil {
			return RunResult{}, fmt.Errorf("error parsing probe interval: %w", err)
		}
	}

	var until time.Time
	if args.Until != "" {
		if until, err = eventmodels.ParseNaiveTime(args.Until); err != nil {
			return RunResult{}, fmt.Errorf("error parsing until: %w", err)
		}
	}

	metrics, err := utils.NewConsolidatorMetrics(otel.GetMeterProvider())
	if err != nil {
		return RunResult{}, fmt.Errorf("error creating metrics: %w", err)
	}

	bus := eventpubsub.NewBus()
	barLogger := logger.NewLogrusLogger()

	if err := bus.Subscribe(eventpubsub.ObservationDroppedEvent, func(event eventmodels.ObservationDroppedEvent) {
		barLogger.Dropped(ctx, event)
		metrics.ObservationDropped(ctx, event)
	}); err != nil {
		return RunResult{}, fmt.Errorf("error subscribing to dropped observations: %w", err)
	}

	var writer *eventproducers.EsdbBarWriter
	if url := os.Getenv("EVENTSTOREDB_URL"); url != "" {
		if writer, err = eventproducers.NewEsdbBarWriter(url, eventmodels.ConsolidatedBarsStream); err != nil {
			return RunResult{}, fmt.Errorf("error connecting to eventstoredb: %w", err)
		}
	}

	switch strings.ToLower(args.Source) {
	case "", "csv":
		c, err := utils.NewQuoteBarConsolidator(cfg)
		if err != nil {
			return RunResult{}, err
		}

		bars, err := utils.ReadQuoteBarsCSV(args.InputPath)
		if err != nil {
			return RunResult{}, fmt.Errorf("error reading observations: %w", err)
		}

		symbol := eventmodels.NewSymbol(cfg.Symbol)
		observations := make([]*eventmodels.QuoteBar, 0, len(bars))
		for _, bar := range bars {
			if bar.Symbol == "" || bar.Symbol == symbol {
				bar.Symbol = symbol
				observations = append(observations, bar)
			}
		}

		return consolidate(ctx, args, c, observations, consolidateOpts{
			bus:           bus,
			topic:         eventpubsub.QuoteBarConsolidatedEvent,
			barLogger:     barLogger,
			writer:        writer,
			probeInterval: probeInterval,
			until:         until,
		})

	case "polygon":
		c, err := utils.NewTradeBarConsolidator(cfg)
		if err != nil {
			return RunResult{}, err
		}

		apiKey, err := utils.GetEnv("POLYGON_API_KEY")
		if err != nil {
			return RunResult{}, err
		}

		timespan, err := eventservices.ParseTimespan(args.Timespan)
		if err != nil {
			return RunResult{}, err
		}

		from, err := time.Parse(time.DateOnly, args.From)
		if err != nil {
			return RunResult{}, fmt.Errorf("error parsing from: %w", err)
		}

		to, err := time.Parse(time.DateOnly, args.To)
		if err != nil {
			return RunResult{}, fmt.Errorf("error parsing to: %w", err)
		}

		source := eventservices.NewPolygonBarSource(apiKey)
		observations, err := source.FetchTradeBars(ctx, eventmodels.NewSymbol(cfg.Symbol), args.Multiplier, timespan, from, to, c.Schedule().ExchangeLocation())
		if err != nil {
			return RunResult{}, fmt.Errorf("error fetching trade bars: %w", err)
		}

		return consolidate(ctx, args, c, observations, consolidateOpts{
			bus:           bus,
			topic:         eventpubsub.TradeBarConsolidatedEvent,
			barLogger:     barLogger,
			writer:        writer,
			probeInterval: probeInterval,
			until:         until,
		})

	default:
		return RunResult{}, fmt.Errorf("unknown source %q: expected csv or polygon", args.Source)
	}
}

type consolidateOpts struct {
	bus           *eventpubsub.Bus
	topic         string
	barLogger     *logger.LogrusLogger
	writer        *eventproducers.EsdbBarWriter
	probeInterval time.Duration
	until         time.Time
}

func consolidate[O driver.SymbolObservation, R consolidatedRecord[R]](ctx context.Context, args RunArgs, c *consolidator.DailyConsolidator[O, R], observations []O, opts consolidateOpts) (RunResult, error) {
	c.Subscribe(eventpubsub.PublishTo[R](opts.bus, opts.topic))

	var bars []R
	if err := opts.bus.Subscribe(opts.topic, func(event consolidator.BarConsolidatedEvent[R]) {
		opts.barLogger.Bar(ctx, event.Bar)
		bars = append(bars, event.Bar)
	}); err != nil {
		return RunResult{}, fmt.Errorf("error subscribing to bars: %w", err)
	}

	if opts.writer != nil {
		if err := opts.bus.SubscribeAsync(opts.topic, eventproducers.BarListener[R](ctx, opts.writer)); err != nil {
			return RunResult{}, fmt.Errorf("error subscribing esdb writer: %w", err)
		}
	}

	replayer := driver.NewReplayer(c, opts.probeInterval, opts.bus)
	replayer.Until = opts.until

	replay, err := replayer.Run(ctx, observations)
	opts.bus.WaitAsync()
	if err != nil {
		return RunResult{}, err
	}

	report.RenderTable(os.Stdout, bars)

	summary, err := report.Summarize(bars)
	if err != nil {
		log.Warnf("error summarizing bars: %v", err)
	} else {
		fmt.Println(summary.String())
	}

	if args.OutputPath != "" {
		if err := report.WriteCSVFile(args.OutputPath, bars); err != nil {
			return RunResult{}, fmt.Errorf("error writing output: %w", err)
		}

		log.Infof("wrote %d bars to %s", len(bars), args.OutputPath)
	}

	return RunResult{Replay: replay, Bars: len(bars)}, nil
}

func main() {
	runCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in.")
	runCmd.PersistentFlags().String("config", "", "The consolidator YAML config. Defaults to $CONSOLIDATOR_CONFIG.")
	runCmd.PersistentFlags().String("source", "csv", "Where observations come from: csv or polygon.")
	runCmd.PersistentFlags().String("input", "", "The CSV file of quote bars, for the csv source.")
	runCmd.PersistentFlags().String("symbol", "", "The symbol to consolidate.")
	runCmd.PersistentFlags().String("from", "", "The first date to fetch, for the polygon source (2006-01-02).")
	runCmd.PersistentFlags().String("to", "", "The last date to fetch, for the polygon source (2006-01-02).")
	runCmd.PersistentFlags().String("timespan", "minute", "The polygon aggregate timespan.")
	runCmd.PersistentFlags().Int("multiplier", 1, "The polygon aggregate multiplier.")
	runCmd.PersistentFlags().String("probe-interval", "", "How often to probe between observations. Defaults to the config value.")
	runCmd.PersistentFlags().String("until", "", "Keep probing after the last observation up to this exchange time.")
	runCmd.PersistentFlags().String("output", "", "Write the consolidated bars to this CSV file.")

	runCmd.MarkPersistentFlagRequired("symbol")

	runCmd.ExecuteContext(context.Background())
}
