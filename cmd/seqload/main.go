package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	promadapter "github.com/codewandler/tokenstore/adapters/prometheus"
	"github.com/codewandler/tokenstore/core/seq"
)

// NOTE: run nats: docker run --net=host nats:latest -js

var phrases = []string{
	"The quick brown fox jumps over the lazy dog.  ",
	"Pack my box with five dozen liquor jugs! ",
	"\tHow vexingly quick daft zebras jump; ",
	"Sphinx of black quartz, judge my vow.\n\n",
	"naïve café crème brûlée - déjà vu ",
	"snake_case and 42 numbers 3.14 ",
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found (falling back to system env)")
	}

	cfg := loadConfig()
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("  Backend: %s\n", cfg.Backend)
	fmt.Printf("Lookaside: %s\n", cfg.Lookaside)
	fmt.Printf("Threshold: %d\n", cfg.Threshold)

	store, err := newRegistry(cfg, log).Open(ctx, cfg.Backend)
	checkErr(err)
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mgr := seq.NewManager(store, seq.ManagerOpts{
		Threshold:     cfg.Threshold,
		CacheCapacity: cfg.CacheSize,
		Lookaside:     lookasideFactory(cfg),
		Compose:       cfg.Compose,
		Log:           log,
		Metrics:       promadapter.NewSeqMetrics(reg),
	})
	defer mgr.Close()
	reg.MustRegister(promadapter.NewCacheCollector("lookaside", mgr))

	var srv *http.Server
	if cfg.ListenAddr != "" {
		srv = &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           newRouter(mgr, reg, cfg.switchable(), log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("serving", slog.String("addr", cfg.ListenAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("server failed", slog.Any("error", err))
			}
		}()
	}

	// === START ===

	log.Info("==================================")
	log.Info("Starting ...")

	startAt := time.Now()
	lastTime := startAt
	tokens := 0
	// sizes at first open; persistent backends keep earlier runs
	initial := map[string]int{}

	for i := 0; i < cfg.N && ctx.Err() == nil; i++ {
		id := fmt.Sprintf("seq-%d", i%max(cfg.Sequences, 1))
		ts, err := mgr.Open(ctx, id)
		checkErr(err)
		if _, ok := initial[id]; !ok {
			size, err := ts.Size(ctx)
			checkErr(err)
			initial[id] = size
		}

		out, err := ts.Append(ctx, phrases[i%len(phrases)])
		checkErr(err)
		tokens += len(out)

		if cfg.FlushEvery > 0 && i%cfg.FlushEvery == 0 {
			errCh := mgr.FlushAsync(ctx, id)
			go func() {
				if err := <-errCh; err != nil {
					log.Error("async flush failed", slog.String("seq", id), slog.Any("error", err))
				}
			}()
		}

		if cfg.DirectAfter > 0 && i == cfg.DirectAfter {
			for _, id := range mgr.IDs() {
				ts, _ := mgr.Get(id)
				checkErr(ts.SwitchToDirect(ctx))
			}
			log.Info("switched to direct mode", slog.Int("after", i))
		}

		if i > 0 && i%100 == 0 {
			print(".")
		}
		if i > 0 && cfg.ReportEvery > 0 && i%cfg.ReportEvery == 0 {
			mu := getMemUsage()
			n := time.Now()
			took := n.Sub(lastTime)
			fmt.Printf(" | %5d appends | %6d ms | %6d appends/s | (%d / %d) MiB mem (sys) |\n",
				cfg.ReportEvery, took.Milliseconds(), int(float64(cfg.ReportEvery)/took.Seconds()),
				mu.Alloc/1024/1024, mu.Sys/1024/1024)
			lastTime = n
		}
	}

	flushed, err := mgr.FlushAll(ctx)
	checkErr(err)

	// === stats ===
	println("")
	println("==========================================")

	took := time.Since(startAt)
	runtime.GC()

	fmt.Printf("total runtime: %.3f seconds\n", took.Seconds())
	fmt.Printf("       tokens: %d\n", tokens)
	fmt.Printf("final flush: %d\n", flushed)
	fmt.Printf("   tokens/s: %d\n", int(float64(tokens)/took.Seconds()))

	total := 0
	for _, id := range mgr.IDs() {
		ts, _ := mgr.Get(id)
		size, err := ts.Size(ctx)
		checkErr(err)
		total += size - initial[id]
	}
	if total != tokens {
		log.Error("size mismatch", slog.Int("sizes", total), slog.Int("appended", tokens))
		os.Exit(1)
	}
	fmt.Println(mgr.Snapshot().String())

	if srv != nil {
		if cfg.Hold {
			log.Info("holding, press ctrl-c to stop")
			<-ctx.Done()
		}
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// === stats helpers ===

type MemUsage struct {
	Alloc uint64 // bytes allocated and not yet freed (heap)
	Sys   uint64 // total bytes obtained from OS
}

func getMemUsage() MemUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemUsage{Alloc: m.Alloc, Sys: m.Sys}
}

func checkErr(err error) {
	if err != nil {
		panic(err)
	}
}
