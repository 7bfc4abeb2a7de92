package config

import "time"

// DefaultConfig returns the service's configuration with every field at a
// reasonable default, to be overlaid by file and environment per Loader.Load.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Store:     DefaultStoreConfig(),
		Redis:     DefaultRedisConfig(),
		LLM:       DefaultLLMConfig(),
		Prices:    DefaultPricesConfig(),
		Auth:      DefaultAuthConfig(),
		Admin:     DefaultAdminConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "goldsvc",
		Password:        "",
		Name:            "goldsvc",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       "claude-sonnet-4-5",
		MaxTokens:   4000,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
		Language:    "ar",
	}
}

// DefaultPricesConfig mirrors the original service's four-provider fallback
// chain and its literal demo fallback quote.
func DefaultPricesConfig() PricesConfig {
	return PricesConfig{
		CacheTTL: 15 * time.Minute,
		Providers: []ProviderConfig{
			{Name: "metals-api", Description: "Primary commodities feed", Priority: 1, Timeout: 10 * time.Second},
			{Name: "goldapi", Description: "Secondary gold/silver feed", Priority: 2, Timeout: 10 * time.Second},
			{Name: "exchangerate-api", Description: "Forex cross-rate derived gold price", Priority: 3, Timeout: 10 * time.Second},
			{Name: "metalpriceapi", Description: "Fourth-priority inverted XAU rate feed", Priority: 4, Timeout: 10 * time.Second},
		},
		FallbackQuote: FallbackQuote{
			Price:     3320.45,
			Change:    12.30,
			ChangePct: 0.37,
			Ask:       3320.95,
			Bid:       3319.95,
			High24h:   3335.80,
			Low24h:    3298.10,
		},
	}
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		AnalysisCacheTTL: 30 * time.Minute,
		BotSignature:     "GoldNightmareBot",
	}
}

func DefaultAdminConfig() AdminConfig {
	return AdminConfig{
		Username: "admin",
		TokenTTL: 12 * time.Hour,
	}
}

func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}

func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:     false,
		ServiceName: "gold-analysis-service",
		SampleRate:  0.1,
	}
}
