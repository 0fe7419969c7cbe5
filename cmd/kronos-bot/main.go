// cmd/kronos-bot/main.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/lramos15/kronos-discord/internal/config"
	"github.com/lramos15/kronos-discord/internal/discord"
	"github.com/lramos15/kronos-discord/internal/kronos"
	"github.com/lramos15/kronos-discord/internal/server"
	"github.com/lramos15/kronos-discord/internal/whmcs"
)

func main() {
	// --- Load configuration first ---
	if err := config.LoadConfig(); err != nil {
		// Use a basic logger here as the configured one isn't ready yet
		log.New(os.Stderr).Fatalf("Failed to load configuration: %v", err)
	}

	// --- Initialize logger based on config ---
	log.SetOutput(os.Stderr)
	log.SetTimeFormat("2006-01-02 15:04:05")

	switch strings.ToLower(config.AppConfig.LogLevel) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "fatal":
		log.SetLevel(log.FatalLevel)
	default:
		log.Warnf("Invalid LOG_LEVEL '%s' specified in config, defaulting to 'info'", config.AppConfig.LogLevel)
		log.SetLevel(log.InfoLevel)
	}

	log.Infof("Configuration loaded successfully. Log level set to '%s'.", config.AppConfig.LogLevel)

	if err := config.AppConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Debugf("Kronos endpoint: %s", config.AppConfig.KronosEndpoint)
	log.Debugf("HTTP timeout: %s", config.AppConfig.HTTPTimeout)
	log.Debugf("Panel window: %s", config.AppConfig.PanelWindow)

	// --- WHMCS identity store ---
	store, err := whmcs.NewStore(
		config.AppConfig.WhmcsDBHost,
		config.AppConfig.WhmcsDBName,
		config.AppConfig.WhmcsDBUsername,
		config.AppConfig.WhmcsDBPassword,
		config.AppConfig.WhmcsDiscordFieldID,
	)
	if err != nil {
		log.Fatalf("Failed to open WHMCS database: %v", err)
	}
	defer store.Close()

	// --- Select the Kronos backend ---
	// Admin credentials unlock the internal API with its Plex detail; without
	// them the official token API is used.
	var backend kronos.Backend
	backendKind := "public"
	if config.AppConfig.UseAdminAPI() {
		backendKind = "admin"
		backend = kronos.NewAdminAPI(
			config.AppConfig.KronosEndpoint,
			config.AppConfig.KronosAdminUsername,
			config.AppConfig.KronosAdminPassword,
			config.AppConfig.HTTPTimeout,
		)
	} else {
		backend = kronos.NewPublicAPI(
			config.AppConfig.KronosEndpoint,
			config.AppConfig.KronosToken,
			config.AppConfig.HTTPTimeout,
		)
	}
	log.Infof("Using %s Kronos API backend", backendKind)

	// --- Health endpoint ---
	if strings.ToLower(config.AppConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else if strings.ToLower(config.AppConfig.GinMode) == "test" {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := server.NewRouter(backendKind)
	go func() {
		listenAddr := fmt.Sprintf(":%s", config.AppConfig.HealthPort)
		log.Infof("Starting health server on %s", listenAddr)
		if err := router.Run(listenAddr); err != nil {
			log.Errorf("Health server stopped: %v", err)
		}
	}()

	// --- Discord bot ---
	bot, err := discord.New(
		config.AppConfig.DiscordToken,
		store,
		backend,
		config.AppConfig.StaffRoleID,
		config.AppConfig.PanelWindow,
	)
	if err != nil {
		log.Fatalf("Failed to create Discord client: %v", err)
	}
	if err := bot.Start(); err != nil {
		log.Fatalf("Failed to connect to Discord: %v", err)
	}
	log.Info("Bot is running. Press Ctrl+C to exit.")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	if err := bot.Stop(); err != nil {
		log.Errorf("Error while disconnecting from Discord: %v", err)
	}
}
