// internal/logger/config.go
package logger

type Config struct {
	LogFile     string
	MaxSize     int // megabytes
	MaxAge      int // days
	MaxBackups  int
	Compress    bool
	Development bool
	// Console enables the colored stdout core.
	Console bool
}

func DefaultConfig() *Config {
	return &Config{
		LogFile:    "launchpad.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
		Console:    true,
	}
}
