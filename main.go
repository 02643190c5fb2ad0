package main

import (
	"log"
	"net/http"

	"github.com/panjf2000/ants/v2"

	"xc-gate/work/auth"
	"xc-gate/work/config"
	"xc-gate/work/handlers"
	"xc-gate/work/logger"
	"xc-gate/work/responder"
	"xc-gate/work/sessions"
	"xc-gate/work/store"
	"xc-gate/work/xmltv"
)

var (
	Version = "v0.1.0" // default version
)

// our main app worker
func main() {

	// load our config
	cfg := config.LoadConfig()
	logger.SetLevel(cfg.LogLevel)

	// open the catalog/account store
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	// worker pool for the async store writes; non-blocking so a saturated
	// pool drops writes instead of stalling handlers
	workerPool, err := ants.NewPool(cfg.WorkerThreads, ants.WithPreAlloc(true), ants.WithNonblocking(true))
	if err != nil {
		log.Fatalf("Failed to create worker pool: %v", err)
	}
	defer workerPool.Release()

	// session recorder, entitlement gate, XMLTV generator, stream responder
	recorder := sessions.NewRecorder(db, workerPool, cfg.SessionWriteRate)
	gate := auth.New(db, recorder)
	guide := xmltv.New(db, cfg.XMLTVPastWindow, cfg.XMLTVAheadWindow, cfg.XMLTVCacheTTL)
	streams := responder.New(db, gate, recorder)

	// the full HTTP surface
	h := handlers.New(cfg, db, gate, recorder, guide, streams, db)
	router := handlers.NewRouter(h)

	// show info
	logger.Info("Starting xc-gate %s", Version)
	logger.Info("Server configuration:")
	logger.Info("  - Base URL: %s", cfg.LogURL(cfg.BaseURL))
	logger.Info("  - Listen Addr: %s", cfg.ListenAddr)
	logger.Info("  - Database: %s", cfg.DatabasePath)
	logger.Info("  - Worker Threads: %d", cfg.WorkerThreads)
	logger.Info("  - Session Write Rate: %d/s", cfg.SessionWriteRate)
	logger.Info("  - Short EPG Limit: %d", cfg.ShortEPGLimit)
	logger.Info("  - XMLTV Window: -%s / +%s", cfg.XMLTVPastWindow, cfg.XMLTVAheadWindow)
	logger.Info("  - XMLTV Cache TTL: %s", cfg.XMLTVCacheTTL)
	logger.Info("  - Debug Enabled: %v", cfg.Debug)
	logger.Info("  - URL Obfuscation: %v", cfg.ObfuscateUrls)

	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
