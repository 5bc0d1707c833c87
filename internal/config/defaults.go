package config

import (
	"os"
	"path/filepath"
)

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Notifier: NotifierConfig{
			Backend:            "log",
			ShowTimeoutSeconds: 30,
		},
		Ingest: IngestConfig{
			ScratchDir:      filepath.Join(os.TempDir(), "notifyd_assets"),
			MaxBodyBytes:    32 << 20, // 32MB, file parts included
			ScratchTTLHours: 24,
			SweepSchedule:   "@hourly",
		},
		Correlation: CorrelationConfig{
			// 0 preserves entries for the process lifetime. Growth is
			// unbounded at high send volume; set a TTL to cap it.
			TTLMinutes: 0,
		},
		Platform: PlatformConfig{
			AppID:           "dev.notifyd.NotificationServer",
			DisplayName:     "Notification Server",
			RegistrationDir: DefaultConfigDir(),
		},
	}
}
