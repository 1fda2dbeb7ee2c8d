package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		ValidateSSL:     BoolPtr(true),
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		RequestID: RequestIDConfig{
			Header: "X-Request-Id",
		},
	}
}
