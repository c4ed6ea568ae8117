package main

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C" // This is required to import the C code

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/geostash/engine/internal/api"
	"github.com/geostash/engine/internal/channel"
	"github.com/geostash/engine/internal/config"
	"github.com/geostash/engine/internal/dispatcher"
	"github.com/geostash/engine/internal/influx"
	"github.com/geostash/engine/internal/logging"
	"github.com/geostash/engine/internal/monitor"
	intOtel "github.com/geostash/engine/internal/otel"
	"github.com/geostash/engine/internal/parser"
	"github.com/geostash/engine/internal/session"
	"github.com/geostash/engine/internal/storage"
	"github.com/geostash/engine/internal/util"
	"github.com/geostash/engine/pkg/bridge"
	"github.com/geostash/engine/pkg/streaming"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentEngineVersion string = "0.1.0"
	BuildDate            string = "unknown"

	Addon      string = "geostash"
	EngineName string = "geostash_engine"
)

// file paths
var (
	// HostDir is the path to the directory of the host executable that
	// loaded the engine. This is checked in init().
	HostDir string

	// EngineFolder is the path to the engine's data folder. It's coded here to be @geostash, but if the module path is located and isn't the host dir, we'll use that instead. This allows someone to load the engine from elsewhere on the device, or use a custom folder name. This is checked in init().
	EngineFolder string

	// ModulePath is the absolute path to this library file.
	ModulePath string

	// ModuleFolder is the parent folder of ModulePath
	ModuleFolder string

	InitLogFilePath   string
	InitLogFile       *os.File
	EngineLogFilePath string
	EngineLogFile     *os.File
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// InfluxManager handles device metric forwarding
	InfluxManager *influx.Manager

	SessionStartTime time.Time = time.Now()

	// bridgeClientVersion is the version the device bridge reports for itself
	bridgeClientVersion string = "unknown"

	// Services
	engineService   *session.Engine
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher
	apiClient       *api.Client

	// Storage backend
	storageBackend storage.Backend

	// streamOut carries scene/state envelopes to the device bridge callback
	streamOut channel.Channel[streaming.Envelope]
)

// perfBackend is satisfied by the GORM-backed storage backends, which expose
// their write-path health for the monitor.
type perfBackend interface {
	monitor.PerfSource
	DB() *gorm.DB
	SessionID() uint
}

// init is run automatically when the module is loaded
func init() {
	var err error

	HostDir, err = bridge.GetHostDir()
	if err != nil {
		panic(err)
	}

	ModulePath = bridge.GetModulePath()
	ModuleFolder = filepath.Dir(ModulePath)

	// if the module dir is not the host dir, we want to assume the engine folder has been renamed and adjust it accordingly
	EngineFolder = filepath.Dir(ModulePath)

	if EngineFolder == HostDir {
		EngineFolder = filepath.Join(HostDir, "@"+Addon)
	}

	// check if parent folder exists
	// if it doesn't, create it
	if _, err := os.Stat(EngineFolder); os.IsNotExist(err) {
		os.Mkdir(EngineFolder, 0755)
	}

	InitLogFilePath = filepath.Join(EngineFolder, "init.log")

	InitLogFile, err = os.Create(InitLogFilePath)
	if err != nil {
		// Log to stderr since logging isn't set up yet
		fmt.Fprintf(os.Stderr, "Failed to create init log file: %v\n", err)
	}

	// Initialize slog manager with initial config
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(InitLogFile, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()

	// load config
	err = loadConfig()
	if err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	// resolve path set in config
	// create logs dir if it doesn't exist
	if _, err := os.Stat(viper.GetString("logsDir")); os.IsNotExist(err) {
		os.Mkdir(viper.GetString("logsDir"), 0755)
	}

	EngineLogFilePath = logging.LogFilePath(viper.GetString("logsDir"), EngineName, SessionStartTime)

	// check if EngineLogFilePath exists
	// if it does, move it to EngineLogFilePath.old
	// if it doesn't, create it
	if _, err := os.Stat(EngineLogFilePath); err == nil {
		os.Rename(EngineLogFilePath, EngineLogFilePath+".old")
	}

	EngineLogFile, err = os.OpenFile(EngineLogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", EngineLogFilePath)
	}

	Logger.Info("Begin logging in logs directory", "path", EngineLogFilePath)

	// Initialize OTel provider, a no-op meter source when disabled
	OTelProvider = intOtel.New(intOtel.Config{
		Enabled:     viper.GetBool("otel.enabled"),
		ServiceName: viper.GetString("otel.serviceName"),
	})
	if OTelProvider.Enabled() {
		Logger.Info("OTel provider initialized")
	}

	// Re-setup logging with file output and optional Graylog
	var graylog io.Writer
	if viper.GetBool("graylog.enabled") {
		graylog = logging.NewGelfWriter(viper.GetString("graylog.address"))
	}
	SlogManager.Setup(EngineLogFile, viper.GetString("logLevel"), graylog)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", EngineLogFilePath)

	// set up the C bridge surface
	Logger.Info("Setting up device bridge...")
	err = setupBridge()
	if err != nil {
		Logger.Error("Failed to set up device bridge!", "error", err)
		panic(err)
	} else {
		Logger.Info("Set up device bridge")
	}

	// get count of cpus available
	// set GOMAXPROCS to n - 2, minimum 1
	numCPUs := runtime.NumCPU()
	Logger.Debug("Number of CPUs", "numCPUs", numCPUs)

	runtime.GOMAXPROCS(int(math.Max(float64(numCPUs-2), 1)))

	go func() {
		startGoroutines()

		// log capsule store status
		checkServerStatus()
	}()
}

func initEngine() {
	// send ready callback to the device bridge
	bridge.WriteBridgeCallback(EngineName, ":ENGINE:READY:")
	// send engine version
	bridge.WriteBridgeCallback(EngineName, ":VERSION:", CurrentEngineVersion)
}

func initStorage() error {
	Logger.Debug("Received :INIT:STORAGE: call")
	functionName := ":INIT:STORAGE:"

	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, SlogManager)
	if err != nil {
		SlogManager.WriteLog(functionName, fmt.Sprintf(`Error creating storage backend: %v`, err), "ERROR")
		bridge.WriteBridgeCallback(EngineName, ":STORAGE:ERROR:", err.Error())
		return err
	}
	if err := backend.Init(); err != nil {
		SlogManager.WriteLog(functionName, fmt.Sprintf(`Error initializing storage backend: %v`, err), "ERROR")
		bridge.WriteBridgeCallback(EngineName, ":STORAGE:ERROR:", err.Error())
		return err
	}
	storageBackend = backend

	streamOut = channel.New[streaming.Envelope](256)
	engineService = session.NewEngine(session.Dependencies{
		Backend:       storageBackend,
		Parser:        parser.NewParser(Logger, bridgeClientVersion, CurrentEngineVersion),
		LogManager:    SlogManager,
		InfluxManager: InfluxManager,
		Out:           streamOut,
		ScanLatency:   config.ScanLatency(),
		TickBudget:    config.TickBudget(),
		OnTick: func(d time.Duration) {
			if monitorService != nil {
				monitorService.SetTickDuration(d)
			}
		},
	})
	engineService.RegisterHandlers(eventDispatcher)
	go pumpStream()

	// GORM-backed storage gets the perf monitor attached
	if pb, ok := storageBackend.(perfBackend); ok {
		db := pb.DB()
		monitorService = monitor.NewService(monitor.Dependencies{
			DB:              db,
			LogManager:      SlogManager,
			Perf:            pb,
			SessionID:       pb.SessionID,
			StatusDir:       EngineFolder,
			IsDatabaseValid: func() bool { return db != nil },
		})
		if !monitorService.IsRunning() {
			Logger.Debug("Status process not running, starting it")
			monitorService.Start()
		}
	}

	// seed the capsule snapshot from the store, if it's reachable
	go seedCapsules()

	bridge.WriteBridgeCallback(EngineName, ":STORAGE:OK:", storageCfg.Type)
	return nil
}

func setupBridge() (err error) {
	bridge.SetVersion(CurrentEngineVersion)

	// Create early dispatcher for commands that don't need storage
	// This ensures :VERSION:, :INIT:, etc. work immediately when the library loads
	dispatcherLogger := logging.NewDispatcherLogger(Logger)
	earlyDispatcher, err := dispatcher.New(dispatcherLogger)
	if err != nil {
		return fmt.Errorf("failed to create early dispatcher: %w", err)
	}

	// Register early handlers
	registerLifecycleHandlers(earlyDispatcher)
	bridge.SetDispatcher(earlyDispatcher)
	eventDispatcher = earlyDispatcher

	Logger.Info("Early dispatcher initialized with lifecycle handlers")
	return nil
}

func loadConfig() (err error) {
	return config.Load(EngineFolder)
}

func checkServerStatus() {
	apiClient = api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := apiClient.Healthcheck(); err != nil {
		Logger.Info("Capsule store is offline", "error", err)
	} else {
		Logger.Info("Capsule store is online")
	}
}

// seedCapsules fetches the capsule snapshot from the store and routes it
// through the regular :CAPSULE:SYNC: path.
func seedCapsules() {
	if apiClient == nil {
		return
	}
	body, err := apiClient.FetchCapsules()
	if err != nil {
		Logger.Info("No capsule snapshot from store", "error", err)
		return
	}
	_, err = eventDispatcher.Dispatch(dispatcher.Event{
		Command:   ":CAPSULE:SYNC:",
		Args:      []string{string(body)},
		Timestamp: time.Now(),
	})
	if err != nil {
		Logger.Error("Failed to apply capsule snapshot from store", "error", err)
	}
}

// pumpStream forwards scene/state envelopes to the device bridge as
// asynchronous callbacks.
func pumpStream() {
	for env := range streamOut.Receive() {
		raw, err := json.Marshal(env)
		if err != nil {
			Logger.Error("Failed to marshal stream envelope", "type", env.Type, "error", err)
			continue
		}
		bridge.WriteBridgeCallback(EngineName, ":STREAM:", string(raw))
	}
}

func startGoroutines() (err error) {
	functionName := "startGoroutines"

	// Initialize influx manager for device metrics
	zlog := zerolog.New(EngineLogFile).With().Timestamp().Logger()
	InfluxManager = influx.NewManager(zlog, filepath.Join(EngineFolder, "influx_backup.gz"))
	err = InfluxManager.Connect()
	if err != nil {
		SlogManager.WriteLog(functionName, fmt.Sprintf(`InfluxDB unavailable: %v`, err), "WARN")
	}

	SlogManager.WriteLog(functionName, "Goroutines started successfully", "INFO")
	return nil
}

// endSession stops the engine and, for export-capable backends, uploads the
// session recap to the capsule store.
func endSession() error {
	if engineService == nil {
		return fmt.Errorf("no active session engine")
	}

	rec := engineService.Context().Record()
	engineService.Stop()

	if monitorService != nil {
		monitorService.Stop()
	}

	if exp, ok := storageBackend.(storage.Exportable); ok && apiClient != nil {
		path := exp.LastExportPath()
		if path != "" {
			go func() {
				err := apiClient.UploadRecap(path, api.RecapMetadata{
					StartedAt:       rec.StartedAt,
					DurationSeconds: time.Since(rec.StartedAt).Seconds(),
					ScanCount:       rec.ScanCount,
				})
				if err != nil {
					Logger.Error("Failed to upload session recap", "path", path, "error", err)
				} else {
					Logger.Info("Uploaded session recap", "path", path)
				}
			}()
		}
	}

	return storageBackend.Close()
}

// registerLifecycleHandlers registers system/lifecycle command handlers with the dispatcher
func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	// Simple commands (no args)
	d.Register(":INIT:", func(e dispatcher.Event) (any, error) {
		go initEngine()
		return "ok", nil
	})

	d.Register(":INIT:STORAGE:", func(e dispatcher.Event) (any, error) {
		go func() {
			if err := initStorage(); err != nil {
				Logger.Error("Storage initialization failed", "error", err)
			}
		}()
		return "ok", nil
	})

	// Simple queries - sync return is sufficient, no callback needed
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentEngineVersion, BuildDate}, nil
	})

	d.Register(":GETDIR:HOST:", func(e dispatcher.Event) (any, error) {
		return HostDir, nil
	})

	d.Register(":GETDIR:MODULE:", func(e dispatcher.Event) (any, error) {
		return ModulePath, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		return EngineLogFilePath, nil
	})

	// Commands with args
	d.Register(":BRIDGE:VERSION:", func(e dispatcher.Event) (any, error) {
		if len(e.Args) > 0 {
			bridgeClientVersion = util.FixEscapeQuotes(util.TrimQuotes(e.Args[0]))
			Logger.Info("Bridge client version", "version", bridgeClientVersion)
		}
		return "ok", nil
	})

	d.Register(":SESSION:START:", func(e dispatcher.Event) (any, error) {
		if engineService == nil {
			return nil, fmt.Errorf("storage not initialized")
		}
		if err := engineService.Start(); err != nil {
			return nil, err
		}
		return "ok", nil
	})

	d.Register(":SESSION:END:", func(e dispatcher.Event) (any, error) {
		Logger.Info("Received :SESSION:END: command, closing session")
		if err := endSession(); err != nil {
			Logger.Error("Failed to end session cleanly", "error", err)
			return nil, err
		}
		return "ok", nil
	})
}

func main() {
	var err error
	Logger.Info("Starting up...")

	args := os.Args[1:]
	if len(args) > 0 {
		if strings.ToLower(args[0]) == "setupdb" {
			err = setupDB()
			if err != nil {
				panic(err)
			}
			Logger.Info("DB setup complete.")
		}
		if strings.ToLower(args[0]) == "recap" {
			sessionIDs := args[1:]
			if len(sessionIDs) > 0 {
				err = getSessionRecap(sessionIDs)
				if err != nil {
					panic(err)
				}
			} else {
				fmt.Println("No session IDs provided.")
			}
		}
		if strings.ToLower(args[0]) == "reducesession" {
			sessionIDs := args[1:]
			if len(sessionIDs) > 0 {
				err = reduceSession(sessionIDs)
				if err != nil {
					panic(err)
				}
			} else {
				fmt.Println("No session IDs provided.")
			}
		}
		if strings.ToLower(args[0]) == "healthcheck" {
			checkServerStatus()
		}
	} else {
		fmt.Println("No arguments provided.")
	}
	fmt.Scanln()
}
