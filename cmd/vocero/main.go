// Vocero is a daemon that places automated outbound phone calls which
// book medical appointments in Spanish, driving a webhook-based
// turn-taking dialogue between a telephony carrier, a tool-calling
// language-model agent, and a calendar backend.
//
// Usage:
//
//	vocero [flags]
//	vocero --config /path/to/vocero.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vocero-ai/vocero/internal/agent"
	openaiagent "github.com/vocero-ai/vocero/internal/agent/openai"
	"github.com/vocero-ai/vocero/internal/audiocache"
	"github.com/vocero-ai/vocero/internal/call"
	"github.com/vocero-ai/vocero/internal/carrier"
	"github.com/vocero-ai/vocero/internal/carrier/twilio"
	"github.com/vocero-ai/vocero/internal/config"
	"github.com/vocero-ai/vocero/internal/health"
	"github.com/vocero-ai/vocero/internal/ledger"
	"github.com/vocero-ai/vocero/internal/orchestrator"
	"github.com/vocero-ai/vocero/internal/sched"
	"github.com/vocero-ai/vocero/internal/sched/googlecal"
	"github.com/vocero-ai/vocero/internal/sched/hours"
	"github.com/vocero-ai/vocero/internal/server"
	"github.com/vocero-ai/vocero/internal/speech"
	"github.com/vocero-ai/vocero/internal/speech/azure"
	"github.com/vocero-ai/vocero/internal/speech/elevenlabs"

	_ "github.com/vocero-ai/vocero/docs"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/vocero.local.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vocero %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("vocero starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Shared per-call state and the ephemeral audio store.
	calls := call.NewStore(time.Duration(cfg.CallStore.MaxAgeMinutes) * time.Minute)
	audio := audiocache.New(time.Duration(cfg.AudioCache.MaxAgeMinutes) * time.Minute)
	tokens := speech.NewTokenMinter(cfg.Speech.TokenSecret,
		time.Duration(cfg.Speech.TokenTTLSeconds)*time.Second)

	// Synthesizer backends. Both are always registered; the per-call
	// choice picks between them and cfg.Speech.Backend is the default.
	synths := map[string]speech.Synthesizer{
		"azure": azure.New(azure.Config{
			SubscriptionKey: cfg.Speech.Azure.SubscriptionKey,
			Region:          cfg.Speech.Azure.Region,
			Voice:           cfg.Speech.Azure.Voice,
		}),
		"elevenlabs": elevenlabs.New(elevenlabs.Config{
			APIKey:  cfg.Speech.ElevenLabs.APIKey,
			VoiceID: cfg.Speech.ElevenLabs.VoiceID,
			ModelID: cfg.Speech.ElevenLabs.ModelID,
		}),
	}
	synthNames := make([]string, 0, len(synths))
	for name := range synths {
		synthNames = append(synthNames, name)
	}

	// Scheduler backend.
	grid := hours.New(hours.Config{
		OpenHour:    cfg.Scheduler.Hours.OpenHour,
		CloseHour:   cfg.Scheduler.Hours.CloseHour,
		CloseMinute: cfg.Scheduler.Hours.CloseMinute,
		SlotMinutes: cfg.Scheduler.Hours.SlotMinutes,
		Doctors:     cfg.Scheduler.Hours.Doctors,
		Timezone:    cfg.Scheduler.Hours.Timezone,
	})
	var scheduler sched.Scheduler = grid
	if cfg.Scheduler.Backend == "googlecal" {
		scheduler = googlecal.New(googlecal.Config{
			CalendarID: cfg.Scheduler.GoogleCal.CalendarID,
			Token:      cfg.Scheduler.GoogleCal.Token,
			Endpoint:   cfg.Scheduler.GoogleCal.Endpoint,
		}, grid)
	}
	slog.Info("using scheduler backend", "backend", scheduler.Name())

	// Appointment ledger backend.
	var led ledger.Ledger
	switch cfg.Ledger.Backend {
	case "memory":
		led = ledger.NewMemory()
	case "redis":
		led, err = ledger.NewRedis(ctx, ledger.RedisConfig{
			Addr:      cfg.Ledger.Redis.Addr,
			Password:  cfg.Ledger.Redis.Password,
			DB:        cfg.Ledger.Redis.DB,
			KeyPrefix: cfg.Ledger.Redis.KeyPrefix,
			TTL:       time.Duration(cfg.Ledger.Redis.TTLSeconds) * time.Second,
		})
		if err != nil {
			slog.Error("redis ledger unavailable", "error", err)
			os.Exit(1)
		}
	case "supabase":
		led, err = ledger.NewSupabase(ledger.SupabaseConfig{
			URL:   cfg.Ledger.Supabase.URL,
			Key:   cfg.Ledger.Supabase.APIKey,
			Table: cfg.Ledger.Supabase.Table,
		})
		if err != nil {
			slog.Error("supabase ledger unavailable", "error", err)
			os.Exit(1)
		}
	case "disabled":
		led = nil
	}
	if led != nil {
		defer led.Close()
		slog.Info("using ledger backend", "backend", led.Name())
	}

	// Conversational agent.
	ag, err := openaiagent.New(openaiagent.Config{
		APIKey:        cfg.Agent.APIKey,
		BaseURL:       cfg.Agent.BaseURL,
		Model:         cfg.Agent.Model,
		Timeout:       time.Duration(cfg.Agent.TimeoutSeconds) * time.Second,
		MaxToolRounds: cfg.Agent.MaxToolRounds,
	}, scheduler)
	if err != nil {
		slog.Error("failed to create agent", "error", err)
		os.Exit(1)
	}
	defer ag.Close()
	var conversational agent.Agent = ag

	// Telephony carrier.
	var car carrier.Carrier = twilio.New(twilio.Config{
		AccountSID: cfg.Carrier.Twilio.AccountSID,
		AuthToken:  cfg.Carrier.Twilio.AuthToken,
		FromNumber: cfg.Carrier.Twilio.FromNumber,
		BaseURL:    cfg.Server.BaseURL,
	})

	orch := orchestrator.New(orchestrator.Params{
		Calls:              calls,
		Agent:              conversational,
		Synthesizers:       synths,
		DefaultSynthesizer: cfg.Speech.Backend,
		Scheduler:          scheduler,
		Ledger:             led,
		Audio:              audio,
		Tokens:             tokens,
		BaseURL:            cfg.Server.BaseURL,
		Greeting:           cfg.Agent.Greeting,
		MaxSilentTurns:     cfg.Orchestrator.MaxSilentTurns,
	})

	ledgerName := "disabled"
	if led != nil {
		ledgerName = led.Name()
	}

	srv := server.New(server.Params{
		Port:               cfg.Server.Port,
		Orchestrator:       orch,
		Carrier:            car,
		Calls:              calls,
		Audio:              audio,
		Tokens:             tokens,
		Synthesizers:       synthNames,
		DefaultSynthesizer: cfg.Speech.Backend,
		SchedulerName:      scheduler.Name(),
		LedgerName:         ledgerName,
	})

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort, map[string]string{
		"carrier":   car.Name(),
		"agent":     conversational.Name(),
		"scheduler": scheduler.Name(),
		"ledger":    ledgerName,
	})
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Janitor: bound memory held by completed calls and stale audio.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, id := range calls.Sweep() {
					audio.DropCall(id)
				}
				audio.Sweep()
			}
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Listen(ctx)
	}()

	healthServer.SetReady(true)
	slog.Info("vocero ready",
		"port", cfg.Server.Port,
		"health_port", cfg.Server.HealthPort,
		"base_url", cfg.Server.BaseURL)

	// Block until shutdown signal or server failure.
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining...")
	case err := <-serverErr:
		if err != nil {
			slog.Error("server failed", "error", err)
		}
	}

	if err := srv.Close(); err != nil {
		slog.Error("server close error", "error", err)
	}
	slog.Info("vocero stopped")
}
