package config

const (
	defaultPort                   = 8080
	defaultShutdownTimeoutSeconds = 10
	defaultDBPath                 = "data/fitplan.db"
	defaultTokenTTLHours          = 24
	defaultLogLevel               = "info"
	defaultRequestsPerMinute      = 10
	defaultBurst                  = 5
)

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Server: Server{
			Port:                   defaultPort,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
		},
		Database: Database{
			Path: defaultDBPath,
		},
		Auth: Auth{
			TokenTTLHours: defaultTokenTTLHours,
		},
		RateLimit: RateLimit{
			RequestsPerMinute: defaultRequestsPerMinute,
			Burst:             defaultBurst,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
