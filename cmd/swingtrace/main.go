// Command swingtrace runs the stroke-analysis pipeline against a live paddle
// sensor (BLE or serial), an MQTT frame bridge, or a recorded capture.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/racketlab/swingtrace/internal/classify"
	"github.com/racketlab/swingtrace/internal/config"
	"github.com/racketlab/swingtrace/internal/link"
	"github.com/racketlab/swingtrace/internal/monitoring"
	"github.com/racketlab/swingtrace/internal/pipeline"
	"github.com/racketlab/swingtrace/internal/score"
	"github.com/racketlab/swingtrace/internal/store"
)

var (
	transport     = flag.String("transport", "ble", "Frame source: ble, serial, mqtt, or replay")
	device        = flag.String("device", "", "Device address to connect to (skips interactive scan)")
	broker        = flag.String("broker", "tcp://localhost:1883", "MQTT broker URL for -transport mqtt")
	capture       = flag.String("capture", "", "Capture file for -transport replay")
	configPath    = flag.String("config", "", "Path to tuning config JSON")
	dbFile        = flag.String("db", "swingtrace.db", "SQLite database path (empty disables persistence)")
	modelPath     = flag.String("model", "model.json", "Path to classifier model artifact")
	migrationsDir = flag.String("migrations", "db/migrations", "Schema migrations directory")
	scanWindow    = flag.Duration("scan", 10*time.Second, "How long to scan before picking the strongest candidate")
	statsInterval = flag.Duration("stats", 30*time.Second, "Interval between pipeline stats log lines")
)

func main() {
	flag.Parse()
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	} else {
		cfg = config.Empty()
	}

	model, err := classify.LoadLinearModel(*modelPath)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}

	var st *store.Store
	if *dbFile != "" {
		st, err = store.Open(*dbFile)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer st.Close()
		if err := st.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	var ps pipeline.Store
	if st != nil {
		ps = st
	}
	p := pipeline.New(cfg, model, ps, monitoring.Default)
	p.SetOutcomeHandler(func(o score.Outcome) {
		log.Printf("stroke: %s score=%d confidence=%.2f peak=%.1f m/s² %q",
			o.Stroke, o.Score, o.Confidence, o.PeakAcceleration, o.Feedback)
	})
	p.Start()
	defer p.Stop()

	t, err := buildTransport()
	if err != nil {
		log.Fatalf("failed to build transport: %v", err)
	}
	params := link.Params{
		// Explicit zeros in the config are honoured: an unset field stays
		// nil and the manager applies its own default.
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		BadFrameWarnStreak:   cfg.GetBadFrameWarnStreak(),
		OnSample:             p.HandleSample,
	}
	if cfg.ReconnectDelayMs != nil {
		d := time.Duration(*cfg.ReconnectDelayMs) * time.Millisecond
		params.ReconnectDelay = &d
	}
	mgr := link.NewManager(t, params)

	deviceID := *device
	if deviceID != "" {
		mgr.Connect(deviceID)
	} else {
		mgr.StartScan()
		if err := waitForCandidate(ctx, mgr, *scanWindow); err != nil {
			log.Fatalf("scan failed: %v", err)
		}
		candidates := mgr.Candidates()
		log.Printf("connecting to %s (%s, RSSI %d)",
			candidates[0].Address, candidates[0].Name, candidates[0].RSSI)
		deviceID = candidates[0].Address
		mgr.Connect(deviceID)
	}

	sessionID := p.StartSession(deviceID)
	log.Printf("session %s running; Ctrl-C to stop", sessionID)

	ticker := time.NewTicker(*statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			mgr.Disconnect()
			stats := p.Stats()
			log.Printf("session %s: %d strokes, avg score %.1f, max %d",
				stats.SessionID, stats.StrokeCount, stats.AvgScore, stats.MaxScore)
			return
		case <-ticker.C:
			stats := p.Stats()
			snap := monitoring.Default.Read()
			log.Printf("stats: strokes=%d avg=%.1f frames=%d dropped=%d reconnects=%d",
				stats.StrokeCount, stats.AvgScore, snap.FramesDecoded,
				snap.FramesDropped, snap.Reconnects)
		}
	}
}

func buildTransport() (link.Transport, error) {
	switch *transport {
	case "ble":
		return link.NewBLETransport(), nil
	case "serial":
		return link.NewSerialTransport(), nil
	case "mqtt":
		return link.NewMQTTTransport(*broker, "swingtrace"), nil
	case "replay":
		if *capture == "" {
			log.Fatal("replay transport requires -capture")
		}
		return link.NewReplayTransport(*capture), nil
	default:
		log.Fatalf("unknown transport %q", *transport)
		return nil, nil
	}
}

// waitForCandidate blocks until at least one candidate is visible, then lets
// the scan window elapse so the strongest signal wins rather than the first.
func waitForCandidate(ctx context.Context, mgr *link.Manager, window time.Duration) error {
	deadline := time.NewTimer(window)
	defer deadline.Stop()
	poll := time.NewTicker(200 * time.Millisecond)
	defer poll.Stop()

	seen := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if !seen && len(mgr.Candidates()) == 0 {
				deadline.Reset(window)
				continue
			}
			return nil
		case <-poll.C:
			if len(mgr.Candidates()) > 0 {
				seen = true
			}
		}
	}
}
