// Package config loads matterd's device configuration from flags, a
// config file, and the environment, layered the way Viper is meant to be
// used: flags win, then MATTERD_* environment variables, then the config
// file, then these defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mkniffen/matterd/pkg/fabric"
)

// Config is matterd's full set of device parameters (Port/Discriminator/
// Passcode/StoragePath/DeviceName/VendorID/ProductID), sourced through
// Viper so flags, environment, and a config file can all set them.
type Config struct {
	Port          int    `mapstructure:"port"`
	Discriminator uint16 `mapstructure:"discriminator"`
	Passcode      uint32 `mapstructure:"passcode"`
	StoragePath   string `mapstructure:"storage"`
	DeviceName    string `mapstructure:"name"`
	VendorID      uint16 `mapstructure:"vendor"`
	ProductID     uint16 `mapstructure:"product"`

	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint. Empty disables metrics.
	MetricsAddr string `mapstructure:"metrics-addr"`
}

// Defaults returns sensible values for running a device without any
// flags at all.
func Defaults() Config {
	return Config{
		Port:          5540,
		Discriminator: 3840,
		Passcode:      20202021,
		DeviceName:    "Matter Device",
		VendorID:      0xFFF1,
		ProductID:     0x8001,
	}
}

// RegisterFlags adds matterd's standard flags to flags. Call this once
// per command, from its init(), so cobra knows the flags before parsing
// args and --help can list them.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Defaults()

	flags.Int("port", d.Port, "UDP/TCP port")
	flags.Uint16("discriminator", d.Discriminator, "12-bit discriminator")
	flags.Uint32("passcode", d.Passcode, "setup passcode")
	flags.String("storage", "", "path to a sqlite database file (empty = in-memory)")
	flags.String("name", d.DeviceName, "device name")
	flags.Uint16("vendor", d.VendorID, "vendor ID")
	flags.Uint16("product", d.ProductID, "product ID")
	flags.String("metrics-addr", "", "listen address for the Prometheus /metrics endpoint (empty disables metrics)")
}

// BindFlags binds flags (already parsed by cobra) into v, so v.Get*
// resolves flag > env > config file > default. Call this from the
// command's RunE, after cobra has parsed argv, not from init: binding an
// unparsed sibling command's flags would shadow the running command's
// values.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix("matterd")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return nil
}

// Load reads v (already populated by BindFlags and, optionally,
// v.ReadInConfig) into a Config.
func Load(v *viper.Viper) (Config, error) {
	cfg := Defaults()
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// VendorIDValue returns cfg.VendorID as the fabric package's named type.
func (cfg Config) VendorIDValue() fabric.VendorID {
	return fabric.VendorID(cfg.VendorID)
}
