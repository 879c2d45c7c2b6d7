package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otellogrus"
	"go.opentelemetry.io/otel"

	"github.com/jiaming2012/daily-consolidator/src/consolidator"
	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
	"github.com/jiaming2012/daily-consolidator/src/eventproducers"
	"github.com/jiaming2012/daily-consolidator/src/eventpubsub"
	"github.com/jiaming2012/daily-consolidator/src/logger"
	"github.com/jiaming2012/daily-consolidator/src/router"
	"github.com/jiaming2012/daily-consolidator/src/service"
	"github.com/jiaming2012/daily-consolidator/src/utils"
)

type RunArgs struct {
	GoEnv      string
	ConfigPath string
	MaxBars    int
}

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/server/main.go --config consolidators.yaml",
	Short: "Serve daily consolidators over http",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			log.Fatalf("error getting config: %v", err)
		}

		maxBars, err := cmd.Flags().GetInt("max-bars")
		if err != nil {
			log.Fatalf("error getting max-bars: %v", err)
		}

		if err := Run(cmd.Context(), RunArgs{
			GoEnv:      goEnv,
			ConfigPath: configPath,
			MaxBars:    maxBars,
		}); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func Run(ctx context.Context, args RunArgs) error {
	if projectsDir := os.Getenv("PROJECTS_DIR"); projectsDir != "" {
		if err := utils.InitEnvironmentVariables(projectsDir, args.GoEnv); err != nil {
			return fmt.Errorf("error loading environment variables: %w", err)
		}
	}

	logger.Init(os.Getenv("LOG_LEVEL"))

	// Set up Telemetry
	log.AddHook(otellogrus.NewHook(otellogrus.WithLevels(
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
		log.WarnLevel,
		log.InfoLevel,
	)))

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		otelShutdown, err := utils.SetupOTelSDK(ctx, "daily-consolidator")
		if err != nil {
			return fmt.Errorf("failed to setup otel sdk: %w", err)
		}

		defer func() {
			if err := otelShutdown(context.Background()); err != nil {
				log.Errorf("failed to shutdown otel sdk: %v", err)
			}
		}()
	}

	configPath := args.ConfigPath
	if configPath == "" {
		configPath = os.Getenv("CONSOLIDATOR_CONFIG")
	}

	if configPath == "" {
		return fmt.Errorf("missing --config flag or CONSOLIDATOR_CONFIG environment variable")
	}

	config, err := utils.LoadConsolidatorConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	probeInterval, err := config.GetProbeInterval(service.DefaultProbeInterval)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	metrics, err := utils.NewConsolidatorMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("error creating metrics: %w", err)
	}

	// setup pubsub
	bus := eventpubsub.NewBus()
	barLogger := logger.NewLogrusLogger()

	if err := bus.Subscribe(eventpubsub.QuoteBarConsolidatedEvent, func(event consolidator.BarConsolidatedEvent[*eventmodels.QuoteBar]) {
		barLogger.Bar(ctx, event.Bar)
	}); err != nil {
		return fmt.Errorf("error subscribing bar logger: %w", err)
	}

	if err := bus.Subscribe(eventpubsub.ObservationDroppedEvent, func(event eventmodels.ObservationDroppedEvent) {
		barLogger.Dropped(ctx, event)
		metrics.ObservationDropped(ctx, event)
	}); err != nil {
		return fmt.Errorf("error subscribing dropped logger: %w", err)
	}

	if url := os.Getenv("EVENTSTOREDB_URL"); url != "" {
		writer, err := eventproducers.NewEsdbBarWriter(url, eventmodels.ConsolidatedBarsStream)
		if err != nil {
			return fmt.Errorf("error connecting to eventstoredb: %w", err)
		}

		if err := bus.SubscribeAsync(eventpubsub.QuoteBarConsolidatedEvent, eventproducers.BarListener[*eventmodels.QuoteBar](ctx, writer)); err != nil {
			return fmt.Errorf("error subscribing esdb writer: %w", err)
		}

		log.Infof("writing consolidated bars to eventstoredb")
	}

	// setup consolidators
	svc, err := service.NewConsolidatorService(config, bus, probeInterval, args.MaxBars)
	if err != nil {
		return fmt.Errorf("error creating consolidator service: %w", err)
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	wg := &sync.WaitGroup{}
	svc.Start(loopCtx, wg)

	log.Infof("consolidating %d symbols, probing every %v", len(svc.Symbols()), probeInterval)

	// setup router
	r := mux.NewRouter()
	router.SetupHandler(r.PathPrefix("/consolidator").Subrouter(), svc)

	port := utils.GetEnvOrDefault("PORT", "8080")

	if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("invalid PORT %q: %w", port, err)
	}

	// start the http server
	srv := &http.Server{
		Handler:     r,
		Addr:        fmt.Sprintf(":%s", port),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Infof("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: failed to listen and serve: %v", err)
		}
	}()

	// Create channel for shutdown signals.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	signal.Notify(stop, syscall.SIGTERM)

	<-stop
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("error shutting down server %s", err)
	} else {
		log.Info("Server gracefully stopped")
	}

	log.Infof("closing %d stream clients", svc.Broadcaster().Len())
	if err := svc.Broadcaster().Close(); err != nil {
		log.Errorf("error closing stream clients: %v", err)
	}

	stopLoop()
	wg.Wait()
	bus.WaitAsync()

	return nil
}

func main() {
	runCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in.")
	runCmd.PersistentFlags().String("config", "", "The consolidator YAML config. Defaults to $CONSOLIDATOR_CONFIG.")
	runCmd.PersistentFlags().Int("max-bars", 1000, "How many emitted bars to keep per symbol. Zero keeps all.")

	runCmd.ExecuteContext(context.Background())
}
