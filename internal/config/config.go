package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode     string   `mapstructure:"mode"`
	Port     int      `mapstructure:"port"`
	LogLevel string   `mapstructure:"log_level"`
	Server   string   `mapstructure:"server"`
	Room     string   `mapstructure:"room"`
	Password string   `mapstructure:"password"`
	Streams  []string `mapstructure:"streams"`

	OutputDir      string `mapstructure:"output_dir"`
	AudioMode      string `mapstructure:"audio_mode"`
	AmbiguousOffer string `mapstructure:"ambiguous_offer"`

	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	DisconnectGrace time.Duration `mapstructure:"disconnect_grace"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`

	ICEServers  []string `mapstructure:"ice_servers"`
	VideoWidth  int      `mapstructure:"video_width"`
	VideoHeight int      `mapstructure:"video_height"`

	ReadLimit            int64         `mapstructure:"read_limit"`
	PingPeriod           time.Duration `mapstructure:"ping_period"`
	ReconnectMaxInterval time.Duration `mapstructure:"reconnect_max_interval"`
	PlayLimit            int           `mapstructure:"play_limit"`
}

// flags maps every config key to its command line flag.
func flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("recorder", pflag.ContinueOnError)
	fs.String("config", "", "path to a yaml config file")
	fs.String("mode", "release", "gin mode: release or debug")
	fs.Int("port", 8080, "status server port, 0 disables it")
	fs.String("log-level", "info", "zerolog level")
	fs.String("server", "wss://wss.vdo.ninja:443", "signaling server URL")
	fs.String("room", "", "room to record")
	fs.String("password", "someEncryptionKey123", "room password")
	fs.StringSlice("streams", nil, "record only these stream IDs")
	fs.String("output-dir", "./recordings", "directory for recordings")
	fs.String("audio-mode", "standalone", "standalone or embedded")
	fs.String("ambiguous-offer", "earliest", "earliest or drop")
	fs.Duration("idle-timeout", 30*time.Second, "fail peers with no activity for this long")
	fs.Duration("disconnect-grace", 5*time.Second, "how long a disconnected peer waits for a reconnect")
	fs.Duration("sweep-interval", 5*time.Second, "period of the idle and stats sweep")
	fs.StringSlice("ice-servers", nil, "STUN/TURN URLs")
	fs.Int("video-width", 1280, "frame width written to matroska headers")
	fs.Int("video-height", 720, "frame height written to matroska headers")
	fs.Int64("read-limit", 1<<20, "max signaling frame size")
	fs.Duration("ping-period", 20*time.Second, "signaling keepalive period")
	fs.Duration("reconnect-max-interval", 30*time.Second, "upper bound of the reconnect backoff")
	fs.Int("play-limit", 5, "play requests per stream per 10s, 0 disables the limit")
	return fs
}

// Load reads flags from args, then ROOMREC_* env vars, then the yaml file
// named by --config or config/config.<CONFIG_ENV>.yaml.
func Load(args []string) (*Config, error) {
	fs := flags()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ROOMREC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
	})
	if bindErr != nil {
		return nil, fmt.Errorf("bind flags: %w", bindErr)
	}

	fileName, _ := fs.GetString("config")
	explicit := fileName != ""
	if !explicit {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		if explicit {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("room", cfg.Room).
		Str("server", cfg.Server).
		Str("output_dir", cfg.OutputDir).
		Strs("streams", cfg.Streams).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Room == "" {
		errs = append(errs, errors.New("room is required"))
	}
	if c.Server == "" {
		errs = append(errs, errors.New("server is required"))
	}
	switch c.AudioMode {
	case "standalone", "embedded":
	default:
		errs = append(errs, fmt.Errorf("unknown audio_mode %q", c.AudioMode))
	}
	switch c.AmbiguousOffer {
	case "earliest", "drop":
	default:
		errs = append(errs, fmt.Errorf("unknown ambiguous_offer %q", c.AmbiguousOffer))
	}
	for name, d := range map[string]time.Duration{
		"idle_timeout":           c.IdleTimeout,
		"disconnect_grace":       c.DisconnectGrace,
		"sweep_interval":         c.SweepInterval,
		"ping_period":            c.PingPeriod,
		"reconnect_max_interval": c.ReconnectMaxInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	return errors.Join(errs...)
}
