// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DiscordToken string `mapstructure:"DISCORD_TOKEN"`
	StaffRoleID  string `mapstructure:"STAFF_ROLE"`

	KronosEndpoint      string `mapstructure:"KRONOS_ENDPOINT"`
	KronosToken         string `mapstructure:"KRONOS_TOKEN"`
	KronosAdminUsername string `mapstructure:"KRONOS_ADMIN_USERNAME"`
	KronosAdminPassword string `mapstructure:"KRONOS_ADMIN_PASSWORD"`

	WhmcsDBHost         string `mapstructure:"WHMCS_DB_HOST"`
	WhmcsDBName         string `mapstructure:"WHMCS_DB_NAME"`
	WhmcsDBUsername     string `mapstructure:"WHMCS_DB_USERNAME"`
	WhmcsDBPassword     string `mapstructure:"WHMCS_DB_PASSWORD"`
	WhmcsDiscordFieldID int    `mapstructure:"WHMCS_DISCORD_FIELD_ID"`

	HTTPTimeoutSeconds int `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	PanelWindowSeconds int `mapstructure:"PANEL_WINDOW_SECONDS"`

	// Derived from the *_SECONDS values by LoadConfig.
	HTTPTimeout time.Duration `mapstructure:"-"`
	PanelWindow time.Duration `mapstructure:"-"`

	HealthPort string `mapstructure:"HEALTH_PORT"`
	GinMode    string `mapstructure:"GIN_MODE"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
}

var AppConfig Config

func LoadConfig() error {
	viper.SetConfigFile(".env") // Look for .env file
	viper.SetConfigType("env")
	viper.AutomaticEnv() // Read from environment variables as fallback/override

	viper.SetDefault("DISCORD_TOKEN", "")
	viper.SetDefault("STAFF_ROLE", "")
	viper.SetDefault("KRONOS_ENDPOINT", "")
	viper.SetDefault("KRONOS_TOKEN", "")
	viper.SetDefault("KRONOS_ADMIN_USERNAME", "")
	viper.SetDefault("KRONOS_ADMIN_PASSWORD", "")
	viper.SetDefault("WHMCS_DB_HOST", "")
	viper.SetDefault("WHMCS_DB_NAME", "")
	viper.SetDefault("WHMCS_DB_USERNAME", "")
	viper.SetDefault("WHMCS_DB_PASSWORD", "")
	viper.SetDefault("WHMCS_DISCORD_FIELD_ID", 1)
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 10)
	viper.SetDefault("PANEL_WINDOW_SECONDS", 240)
	viper.SetDefault("HEALTH_PORT", "8080")
	viper.SetDefault("GIN_MODE", "release")
	viper.SetDefault("LOG_LEVEL", "info")

	err := viper.ReadInConfig()
	// Ignore if .env file not found, rely on defaults/env vars
	if _, ok := err.(viper.ConfigFileNotFoundError); !ok && err != nil {
		return err
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return err
	}

	// Convert seconds to durations
	AppConfig.HTTPTimeout = time.Duration(AppConfig.HTTPTimeoutSeconds) * time.Second
	AppConfig.PanelWindow = time.Duration(AppConfig.PanelWindowSeconds) * time.Second

	return nil
}

// UseAdminAPI reports whether the administrative backend should be used.
// Admin credentials win over a public API token when both are present.
func (c *Config) UseAdminAPI() bool {
	return c.KronosAdminUsername != "" && c.KronosAdminPassword != ""
}

// Validate checks that every capability the process is about to start has
// the credentials it needs. A failure here is fatal at startup.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.KronosEndpoint == "" {
		return fmt.Errorf("KRONOS_ENDPOINT is required")
	}
	if !c.UseAdminAPI() && c.KronosToken == "" {
		return fmt.Errorf("either KRONOS_TOKEN or KRONOS_ADMIN_USERNAME/KRONOS_ADMIN_PASSWORD must be set")
	}
	if c.WhmcsDBHost == "" || c.WhmcsDBName == "" || c.WhmcsDBUsername == "" {
		return fmt.Errorf("WHMCS_DB_HOST, WHMCS_DB_NAME and WHMCS_DB_USERNAME are required")
	}
	return nil
}
