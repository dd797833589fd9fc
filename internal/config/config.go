package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Healthcheck is the configuration surface of the VPN/torrent healthcheck
// agent. Credentials are required: without them the checks are meaningless,
// so a missing value is fatal at startup.
type Healthcheck struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// Transmission RPC
	TrHost string `envconfig:"TR_HOST" default:"localhost"`
	TrPort int    `envconfig:"TR_PORT" default:"9091"`
	TrUser string `envconfig:"TR_USER" required:"true"`
	TrPass string `envconfig:"TR_PASS" required:"true"`

	// Gluetun control server
	GluetunHost string `envconfig:"GLUETUN_HOST" default:"localhost"`
	GluetunPort int    `envconfig:"GLUETUN_PORT" default:"8000"`
	GluetunUser string `envconfig:"GLUETUN_USER" required:"true"`
	GluetunPass string `envconfig:"GLUETUN_PASS" required:"true"`

	// Reporting and probing
	ReportURL            string `envconfig:"HC_URL" required:"true"`
	PortcheckURL         string `envconfig:"PORTCHECK_URL" default:"https://portcheck.transmissionbt.com"`
	CheckIntervalSeconds int    `envconfig:"CHECK_INTERVAL_SECONDS" default:"300"`
}

// Interval returns the cycle cadence as a duration.
func (c *Healthcheck) Interval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// IPWatcher is the configuration surface of the IP-change watcher agent.
// The update identifier itself is not config: it lives in IdentifierFile or
// in the env var named by IdentifierEnv, resolved at startup.
type IPWatcher struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	UpdateURL      string `envconfig:"IPW_UPDATE_URL" required:"true"`
	IdentifierFile string `envconfig:"IPW_IDENTIFIER_FILE" default:""`
	IdentifierEnv  string `envconfig:"IPW_IDENTIFIER_ENV" default:"IPW_IDENTIFIER"`

	CacheFile  string `envconfig:"IPW_CACHE_FILE" default:"/var/lib/ipwatcher/last_ip"`
	CookieFile string `envconfig:"IPW_COOKIE_FILE" default:"/var/lib/ipwatcher/session"`

	ReportURL string `envconfig:"IPW_REPORT_URL" default:""`

	IntervalSeconds          int `envconfig:"IPW_INTERVAL_SECONDS" default:"300"`
	ErrorIntervalSeconds     int `envconfig:"IPW_ERROR_INTERVAL_SECONDS" default:"60"`
	RateLimitIntervalSeconds int `envconfig:"IPW_RATE_LIMIT_INTERVAL_SECONDS" default:"900"`

	Providers []string `envconfig:"IPW_PROVIDERS" default:"https://api.ipify.org,https://icanhazip.com,https://checkip.amazonaws.com,https://ifconfig.me/ip"`

	GeoIPPath string `envconfig:"GEOIP_PATH" default:""`
}

func (c *IPWatcher) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c *IPWatcher) ErrorInterval() time.Duration {
	return time.Duration(c.ErrorIntervalSeconds) * time.Second
}

func (c *IPWatcher) RateLimitInterval() time.Duration {
	return time.Duration(c.RateLimitIntervalSeconds) * time.Second
}

// LoadHealthcheck reads .env (optional) and processes environment variables.
func LoadHealthcheck(envFile string) *Healthcheck {
	loadEnvFile(envFile)

	var cfg Healthcheck
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Configuration Error: %v", err)
	}
	return &cfg
}

// LoadIPWatcher reads .env (optional) and processes environment variables.
func LoadIPWatcher(envFile string) *IPWatcher {
	loadEnvFile(envFile)

	var cfg IPWatcher
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Configuration Error: %v", err)
	}
	return &cfg
}

func loadEnvFile(envFile string) {
	if envFile != "" {
		// An explicitly requested file must exist
		if err := godotenv.Load(envFile); err != nil {
			log.Fatalf("Configuration Error: %v", err)
		}
		return
	}
	// Silently ignore if .env is missing (production might use real ENV vars)
	_ = godotenv.Load()
}
