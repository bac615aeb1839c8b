package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

func getEnvBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	return v == "1" || strings.ToLower(v) == "true"
}

func getEnv(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, fmt.Sprintf("%d", fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(getEnv(key, fallback.String()))); err != nil {
		return fallback
	}
	return l
}

type config struct {
	LogLevel    slog.Level
	N           int    // number of appends
	ReportEvery int    // appends between progress lines
	Sequences   int    // number of sequences appended to round robin
	Backend     string // memory, nats, sqlite or postgres
	Lookaside   string // eviction, ristretto or none
	Threshold   int
	CacheSize   int
	DirectAfter int // switch every sequence to direct mode after this many appends, 0 = never
	FlushEvery  int // queue an async flush of the current sequence every n appends, 0 = never
	DatabaseURL string
	SQLitePath  string
	ListenAddr  string
	Hold        bool // keep serving /metrics after the run until interrupted
	Compose     bool // NFC-compose appended text
}

// switchable reports whether the lookaside follows the manager's Switch.
func (c config) switchable() bool {
	return c.Lookaside != "ristretto" && c.Lookaside != "none"
}

func loadConfig() config {
	return config{
		LogLevel:    getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		N:           getEnvInt("N", 20_000),
		ReportEvery: getEnvInt("B", 1_000),
		Sequences:   getEnvInt("SEQS", 8),
		Backend:     getEnv("BACKEND", "memory"),
		Lookaside:   getEnv("LOOKASIDE", "eviction"),
		Threshold:   getEnvInt("THRESHOLD", 100),
		CacheSize:   getEnvInt("CACHE_SIZE", 1_000),
		DirectAfter: getEnvInt("DIRECT_AFTER", 0),
		FlushEvery:  getEnvInt("FLUSH_EVERY", 0),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "tokenstore.db"),
		ListenAddr:  getEnv("LISTEN_ADDR", ":9090"),
		Hold:        getEnvBool("HOLD", false),
		Compose:     getEnvBool("COMPOSE", false),
	}
}
