package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kartoza/roa-simulator/internal/config"
	"github.com/kartoza/roa-simulator/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	webview "github.com/webview/webview_go"
)

var version = "dev"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	modelPath := flag.String("model", "", "Model directory or bundle file (overrides config)")
	headless := flag.Bool("headless", false, "Run in headless mode (no GUI window)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ROA Simulator v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		setupLogging("info")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.LogLevel)

	if *port != 0 {
		cfg.Port = *port
	}
	if *headless {
		cfg.Headless = true
	}
	cfg.Version = version

	// Resolve the model artifact:
	// 1. -model flag, then config file or ROA_MODEL_PATH
	// 2. Otherwise the installed model pack from saved settings
	// 3. Fall back to <data dir>/model
	cfg.ModelPath = resolveModelPath(*modelPath, cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Find an available port (try up to 10 ports starting from the requested one)
	availablePort, err := findAvailablePort(cfg.Port, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to find available port")
	}
	if availablePort != cfg.Port {
		log.Warn().Msgf("Port %d in use, using port %d instead", cfg.Port, availablePort)
	}
	cfg.Port = availablePort

	log.Info().
		Str("version", version).
		Int("port", cfg.Port).
		Str("model", cfg.ModelPath).
		Bool("headless", cfg.Headless).
		Msg("ROA Simulator starting")

	// Create the server; a model that cannot be loaded is fatal
	srv, err := server.New(*cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for server to be ready
	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(serverURL, 10*time.Second)

	if cfg.Headless {
		// Headless mode: wait for signal or error
		select {
		case err := <-errCh:
			if err != nil {
				log.Fatal().Err(err).Msg("Server error")
			}
		case sig := <-stop:
			log.Info().Msgf("Received %v signal, shutting down...", sig)
			if err := srv.Stop(); err != nil {
				log.Error().Err(err).Msg("Error during shutdown")
			}
		}
		return
	}

	// GUI mode: open embedded WebView window
	log.Info().Msg("Opening application window...")
	w := webview.New(false)
	defer w.Destroy()

	w.SetTitle("ROA Simulator")
	w.SetSize(1280, 800, webview.HintNone)
	w.Navigate(serverURL)

	// When the webview window closes, shut down the server
	go func() {
		select {
		case err := <-errCh:
			if err != nil {
				log.Error().Err(err).Msg("Server error")
			}
		case sig := <-stop:
			log.Info().Msgf("Received %v signal, shutting down...", sig)
			w.Terminate()
		}
	}()

	// Run blocks until the window is closed
	w.Run()

	log.Info().Msg("Window closed, shutting down server...")
	if err := srv.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

// setupLogging configures the global logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// resolveModelPath picks the artifact location from flag, config, settings
// and finally the data directory
func resolveModelPath(flagPath string, cfg *config.Config) string {
	if flagPath != "" {
		return flagPath
	}
	if cfg.ModelPath != "" {
		return cfg.ModelPath
	}

	settings, err := config.LoadSettings()
	if err != nil {
		log.Warn().Err(err).Msg("Could not load settings")
	} else if settings.ModelPackPath != "" {
		if _, err := os.Stat(settings.ModelPackPath); err == nil {
			log.Info().Str("path", settings.ModelPackPath).Msg("Using installed model pack")
			return settings.ModelPackPath
		}
		log.Warn().Str("path", settings.ModelPackPath).Msg("Saved model pack path no longer exists")
	}

	return filepath.Join(cfg.DataDir, "model")
}

// waitForServer polls until the server is accepting connections
func waitForServer(url string, timeout time.Duration) {
	addr := url[len("http://"):]
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Warn().Msgf("Server may not be ready at %s", url)
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		addr := fmt.Sprintf(":%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}
