// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath     = pflag.String("config", ".", "Directory containing config.toml")
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers   = []string{"sqlite", "postgres"}
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")

	v.BindEnv("bot.token", "bot_token")
	v.BindEnv("bot.channel", "bot_channel")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("admin.ids", "admin_ids")
	v.BindEnv("admin.top_n", "admin_top_n")
	v.BindEnv("admin.export_window_hours", "admin_export_window_hours")

	v.BindEnv("limits.token_cooldown", "limits_token_cooldown")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "exchange.db")

	v.SetDefault("admin.top_n", 10)
	v.SetDefault("admin.export_window_hours", 24)

	v.SetDefault("limits.token_cooldown", 120)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetString("bot.token") == "" {
		return errors.New("bot.token can't be empty")
	}

	if v.GetString("bot.channel") == "" {
		return errors.New("bot.channel can't be empty")
	}

	if !slices.Contains(validDrivers, v.GetString("db.driver")) {
		return errors.New("invalid db driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("db.dsn can't be empty")
	}

	if v.GetInt("limits.token_cooldown") <= 0 {
		return errors.New("limits.token_cooldown must be bigger than 0")
	}

	if v.GetInt("admin.top_n") <= 0 {
		return errors.New("admin.top_n must be bigger than 0")
	}

	if v.GetInt("admin.export_window_hours") <= 0 {
		return errors.New("admin.export_window_hours must be bigger than 0")
	}

	makeLogger()

	if len(AdminIDs()) == 0 {
		zap.L().Warn("No admin.ids configured, privileged commands will be rejected for everyone")
	}

	return nil
}

// AdminIDs returns the configured administrator identity set. The
// config file carries the ids as a TOML array; the admin_ids env var
// delivers one comma or space separated string, which viper's int-slice
// cast can't read, so that form is parsed by hand.
func AdminIDs() []int64 {
	ids := v.GetIntSlice("admin.ids")

	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}

	if len(out) > 0 {
		return out
	}

	fields := strings.FieldsFunc(v.GetString("admin.ids"), func(r rune) bool {
		return r == ',' || r == ' '
	})
	for _, field := range fields {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			zap.L().Warn("Skipping unparsable admin id", zap.String("value", field))
			continue
		}

		out = append(out, id)
	}

	return out
}

// Cooldown returns the token listing cooldown as a duration.
func Cooldown() time.Duration {
	return time.Duration(v.GetInt("limits.token_cooldown")) * time.Second
}

// ExportWindow returns the recent-tokens export window as a duration.
func ExportWindow() time.Duration {
	return time.Duration(v.GetInt("admin.export_window_hours")) * time.Hour
}

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()

	var lvl zapcore.Level
	if err := lvl.Set(v.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
