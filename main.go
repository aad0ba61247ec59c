package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fragmenter/archive"
	"fragmenter/config"
	"fragmenter/encoder"
	"fragmenter/ledger"
	"fragmenter/mp4frag"
	"fragmenter/status"

	"fragmenter/httpapi"
)

const httpShutdownTimeout = 5 * time.Second

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := mp4frag.New(mp4frag.Config{
		HLSBase:        cfg.HLSBase,
		HLSListSize:    cfg.HLSListSize,
		HLSListInit:    cfg.HLSListInit,
		BufferListSize: cfg.BufferListSize,
		MoofHuntLimit:  cfg.MoofHuntLimit,
	})

	archiveSink, err := archive.New(ctx, cfg.ArchiveBucket, cfg.ArchivePrefix, os.Getenv("AWS_REGION"))
	if err != nil {
		log.Fatalf("failed to initialize archive sink: %v", err)
	}
	if archiveSink != nil {
		stream.SetArchiveHook(archiveSink.HookFunc(cfg.HLSBase))
	}

	segLedger, err := ledger.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to initialize segment ledger: %v", err)
	}
	if segLedger != nil {
		defer segLedger.Close()
	}

	statusHub := status.NewHub()

	// Wire publish hooks: ledger and status both want to observe every
	// published segment, so chain them instead of calling
	// SetPublishHook twice (the second call would just overwrite the
	// first).
	stream.SetPublishHook(func(seg mp4frag.MediaSegment) {
		if segLedger != nil {
			segLedger.PublishHookFunc(cfg.HLSBase)(seg)
		}
		statusHub.PublishHookFunc()(seg)
	})
	stream.SetInitHook(statusHub.InitHookFunc())
	stream.SetRecoveryHook(statusHub.RecoveryHookFunc())

	proc, err := encoder.Start(ctx, encoder.Spec{Source: cfg.RTMPSource, Title: cfg.HLSBase})
	if err != nil {
		log.Fatalf("failed to start encoder: %v", err)
	}

	chunks := make(chan []byte, 4)
	go proc.Pump(ctx, cfg.FrameSize, chunks)
	go stream.Run(chunks)

	go func() {
		if err := proc.Wait(); err != nil {
			log.Printf("encoder process exited: %v", err)
		}
		cancel()
	}()

	server := httpapi.New(stream, statusHub, cfg.HLSBase, cfg.APIToken)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Handler(),
	}

	go func() {
		log.Printf("httpapi listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("httpapi server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Println("shutting down on signal")
	case <-ctx.Done():
		log.Println("shutting down: encoder stopped")
	}

	cancel()
	stream.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("httpapi shutdown: %v", err)
	}
}
