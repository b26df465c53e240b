// Command lanterne is the slideshow gallery service.
//
// Slides come in over HTTP (multipart upload) or MCP tools, get deduped and
// persisted, and come back out as an ordered gallery or a portable package.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/lanterne/dbopen"
	"github.com/hazyhaar/lanterne/gallery"
	"github.com/hazyhaar/lanterne/journal"
	"github.com/hazyhaar/lanterne/mcpquic"
	"github.com/hazyhaar/lanterne/pack"
	"github.com/hazyhaar/lanterne/rasterize"
	"github.com/hazyhaar/lanterne/shield"
	"github.com/hazyhaar/lanterne/store"
)

func main() {
	configPath := flag.String("config", "", "path to lanterne.yaml config file")
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = LoadConfig(*configPath)
		if err != nil {
			slog.Error("config", "error", err)
			os.Exit(1)
		}
	}

	// Environment overrides win over the config file.
	if port := os.Getenv("PORT"); port != "" {
		cfg.Listen = ":" + port
	}
	cfg.GalleryDB = env("GALLERY_DB", cfg.GalleryDB)
	cfg.JournalDB = env("JOURNAL_DB", cfg.JournalDB)
	cfg.DelayMS = envInt("DELAY_MS", cfg.DelayMS)
	cfg.PixelBudget = envInt("PIXEL_BUDGET", cfg.PixelBudget)
	cfg.MCP.Transport = env("MCP_TRANSPORT", cfg.MCP.Transport)
	cfg.MCP.QUICAddr = env("MCP_QUIC_ADDR", cfg.MCP.QUICAddr)
	cfg.MCP.TLSCert = env("TLS_CERT", cfg.MCP.TLSCert)
	cfg.MCP.TLSKey = env("TLS_KEY", cfg.MCP.TLSKey)

	var level slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Event journal. Optional: a failed open leaves jr nil, which the
	// journal package treats as a no-op sink.
	var jr *journal.Journal
	if jdb, err := dbopen.Open(cfg.JournalDB, dbopen.WithMkdirAll(), dbopen.WithSchema(journal.Schema)); err != nil {
		slog.Warn("journal unavailable", "path", cfg.JournalDB, "error", err)
	} else {
		jr = journal.New(jdb, logger)
		defer jdb.Close()
	}

	// Slide store opens its database lazily and degrades to memory-only
	// operation when the path is unusable.
	st := store.New(store.Config{Path: cfg.GalleryDB, Logger: logger})
	defer st.Close()

	raster := rasterize.New(rasterize.NewPDFEngine(), rasterize.Config{
		PixelBudget: cfg.PixelBudget,
		Logger:      logger,
	})

	g := gallery.New(st, raster, jr, gallery.Config{
		DelayMS: cfg.DelayMS,
		Logger:  logger,
	})

	if err := g.Restore(ctx); err != nil {
		slog.Warn("gallery restore", "error", err)
	}

	// Optional MCP over QUIC.
	if cfg.MCP.Transport == "quic" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "lanterne",
			Version: "1.0.0",
		}, nil)
		g.RegisterMCP(mcpSrv)

		quicAddr := cfg.MCP.QUICAddr

		var tlsCfg *tls.Config
		var err error
		if cfg.MCP.TLSCert != "" && cfg.MCP.TLSKey != "" {
			tlsCfg, err = mcpquic.ServerTLSConfig(cfg.MCP.TLSCert, cfg.MCP.TLSKey)
		} else {
			tlsCfg, err = mcpquic.SelfSignedTLSConfig()
		}
		if err != nil {
			slog.Error("MCP QUIC TLS", "error", err)
		} else {
			ql, qErr := mcpquic.NewListener(quicAddr, tlsCfg, mcpSrv, logger)
			if qErr != nil {
				slog.Error("MCP QUIC listener", "error", qErr)
			} else {
				go func() {
					slog.Info("MCP QUIC starting", "addr", quicAddr)
					if sErr := ql.Serve(ctx); sErr != nil && ctx.Err() == nil {
						slog.Error("MCP QUIC", "error", sErr)
					}
				}()
				defer ql.Close()
			}
		}
	}

	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(cfg.MaxUploadBytes(), map[string]shield.RateLimitConfig{
		"POST /api/ingest": {MaxRequests: 30, WindowSeconds: 60, Enabled: true},
		"POST /api/import": {MaxRequests: 10, WindowSeconds: 60, Enabled: true},
	}) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/ingest", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseMultipartForm(cfg.MaxUploadBytes()); err != nil {
			writeError(w, 400, err)
			return
		}
		var inputs []gallery.Input
		for _, fh := range req.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, 400, err)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, 400, err)
				return
			}
			// Multipart uploads carry no mtime. Leaving Modified zero keeps
			// re-uploads of the same file deduplicated.
			inputs = append(inputs, gallery.Input{
				Name: fh.Filename,
				MIME: fh.Header.Get("Content-Type"),
				Size: fh.Size,
				Data: data,
			})
		}
		writeJSON(w, 200, g.Ingest(req.Context(), inputs))
	})

	r.Get("/api/slides", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, g.Entries())
	})

	r.Get("/api/slides/{signature}", func(w http.ResponseWriter, req *http.Request) {
		sig := chi.URLParam(req, "signature")
		for _, sl := range g.Entries() {
			if sl.Signature == sig {
				w.Header().Set("Content-Type", sl.MIME)
				w.WriteHeader(200)
				w.Write(sl.Payload)
				return
			}
		}
		writeJSON(w, 404, map[string]string{"error": "slide not found"})
	})

	r.Get("/api/delay", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]int{"delayMs": g.Delay()})
	})

	r.Put("/api/delay", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			DelayMS int `json:"delayMs"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, 400, err)
			return
		}
		g.SetDelay(body.DelayMS)
		writeJSON(w, 200, map[string]int{"delayMs": g.Delay()})
	})

	r.Get("/api/export", func(w http.ResponseWriter, req *http.Request) {
		data, err := g.ExportPackage(req.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="slideshow.json"`)
		w.WriteHeader(200)
		w.Write(data)
	})

	r.Post("/api/import", func(w http.ResponseWriter, req *http.Request) {
		data, err := io.ReadAll(io.LimitReader(req.Body, cfg.MaxUploadBytes()))
		if err != nil {
			writeError(w, 400, err)
			return
		}
		added, total, err := g.ImportPackage(req.Context(), data)
		if err != nil {
			if errors.Is(err, pack.ErrUnsupportedFormat) {
				writeError(w, 415, err)
				return
			}
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]int{"added": added, "total": total})
	})

	r.Post("/api/reset", func(w http.ResponseWriter, req *http.Request) {
		if err := g.Reset(req.Context()); err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/api/journal", func(w http.ResponseWriter, req *http.Request) {
		if jr == nil {
			writeJSON(w, 200, []journal.StoredEvent{})
			return
		}
		n := envValInt(req.URL.Query().Get("n"), 50)
		events, err := jr.Recent(req.Context(), n)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, events)
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	return envValInt(os.Getenv(key), def)
}

func envValInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
