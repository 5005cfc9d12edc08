package bootstrap

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the bootstrap pipeline's tunables. Reference: SPEC_FULL.md's
// AMBIENT STACK configuration section; grounded on the teacher's
// internal/disk/dmg.go LoadDMGConfig.
type Config struct {
	ProvisionalBlockSize uint32 `mapstructure:"provisional_block_size"`
	AutoDetectAPFS       bool   `mapstructure:"auto_detect_apfs"`
	// MaxRewindAttempts bounds how many older superblocks the Orchestrator
	// will try before giving up. Zero means unbounded: keep rewinding until
	// the Selector itself runs out of candidates.
	MaxRewindAttempts int `mapstructure:"max_rewind_attempts"`
}

// LoadConfig reads bootstrap.* keys via Viper, honoring an APFS-prefixed
// environment override for each one (e.g. APFS_BOOTSTRAP_AUTO_DETECT_APFS),
// the way the teacher's LoadDMGConfig honors APFS_AUTO_DETECT_APFS.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	v.SetDefault("bootstrap.provisional_block_size", 4096)
	v.SetDefault("bootstrap.auto_detect_apfs", true)
	v.SetDefault("bootstrap.max_rewind_attempts", 0)

	v.SetEnvPrefix("APFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("bootstrap: reading config file: %w", err)
		}
	}

	cfg := &Config{
		ProvisionalBlockSize: v.GetUint32("bootstrap.provisional_block_size"),
		AutoDetectAPFS:       v.GetBool("bootstrap.auto_detect_apfs"),
		MaxRewindAttempts:    v.GetInt("bootstrap.max_rewind_attempts"),
	}
	return cfg, nil
}
