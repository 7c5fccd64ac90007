package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/roomsync/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

// bind registers the flag, its environment variable and its default.
// Flags win over the environment.
func (v configVar[T]) bind(define func(name string, value T, usage string) *T, usage string) {
	define(v.flagKey, v.defaultValue, usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

var (
	serverURL = configVar[string]{
		envKey:       "ROOMSYNC_SERVER_URL",
		flagKey:      "server-url",
		defaultValue: "ws://localhost:8000/ws",
	}
	room = configVar[string]{
		envKey:       "ROOMSYNC_ROOM",
		flagKey:      "room",
		defaultValue: "",
	}
	searchURL = configVar[string]{
		envKey:       "ROOMSYNC_SEARCH_URL",
		flagKey:      "search-url",
		defaultValue: "",
	}
	host = configVar[string]{
		envKey:       "ROOMSYNC_HOST",
		flagKey:      "host",
		defaultValue: "127.0.0.1",
	}
	port = configVar[int]{
		envKey:       "ROOMSYNC_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "ROOMSYNC_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	reconnectInterval = configVar[time.Duration]{
		envKey:       "ROOMSYNC_RECONNECT_INTERVAL",
		flagKey:      "reconnect-interval",
		defaultValue: 5 * time.Second,
	}
	driftInterval = configVar[time.Duration]{
		envKey:       "ROOMSYNC_DRIFT_INTERVAL",
		flagKey:      "drift-interval",
		defaultValue: 250 * time.Millisecond,
	}
	driftTolerance = configVar[time.Duration]{
		envKey:       "ROOMSYNC_DRIFT_TOLERANCE",
		flagKey:      "drift-tolerance",
		defaultValue: time.Second,
	}
	seekTolerance = configVar[time.Duration]{
		envKey:       "ROOMSYNC_SEEK_TOLERANCE",
		flagKey:      "seek-tolerance",
		defaultValue: time.Second,
	}
	loadLatency = configVar[time.Duration]{
		envKey:       "ROOMSYNC_LOAD_LATENCY",
		flagKey:      "load-latency",
		defaultValue: time.Second,
	}
	resolveMedia = configVar[bool]{
		envKey:       "ROOMSYNC_RESOLVE_MEDIA",
		flagKey:      "resolve-media",
		defaultValue: false,
	}
	oembedURL = configVar[string]{
		envKey:       "ROOMSYNC_OEMBED_URL",
		flagKey:      "oembed-url",
		defaultValue: "",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	searchCacheTTL = configVar[time.Duration]{
		envKey:       "ROOMSYNC_SEARCH_CACHE_TTL",
		flagKey:      "search-cache-ttl",
		defaultValue: time.Hour,
	}
)

func loadAppConfig() *app.AppConfig {
	serverURL.bind(pflag.String, "Room broker websocket endpoint, the room code is appended")
	room.bind(pflag.String, "Room code to join")
	searchURL.bind(pflag.String, "Media search endpoint, empty disables search")
	host.bind(pflag.String, "Control API host")
	port.bind(pflag.Int, "Control API port")
	logLevel.bind(pflag.String, "Logging level")
	reconnectInterval.bind(pflag.Duration, "Delay before reconnecting to the room")
	driftInterval.bind(pflag.Duration, "Period of the drift check")
	driftTolerance.bind(pflag.Duration, "Drift allowed before a corrective seek")
	seekTolerance.bind(pflag.Duration, "Distance below which room seeks are ignored")
	loadLatency.bind(pflag.Duration, "Wait for media load before the join seek")
	resolveMedia.bind(pflag.Bool, "Resolve media metadata before playing")
	oembedURL.bind(pflag.String, "oEmbed endpoint used to resolve media")
	redisHost.bind(pflag.String, "Redis host for the search cache, empty disables caching")
	redisPort.bind(pflag.Int, "Redis port")
	redisPassword.bind(pflag.String, "Redis password")
	searchCacheTTL.bind(pflag.Duration, "Lifetime of cached search results")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	config := &app.AppConfig{
		ServerURL:         viper.GetString(serverURL.flagKey),
		Room:              viper.GetString(room.flagKey),
		SearchURL:         viper.GetString(searchURL.flagKey),
		Host:              viper.GetString(host.flagKey),
		Port:              viper.GetInt(port.flagKey),
		LogLevel:          strings.ToUpper(viper.GetString(logLevel.flagKey)),
		ReconnectInterval: viper.GetDuration(reconnectInterval.flagKey),
		DriftInterval:     viper.GetDuration(driftInterval.flagKey),
		DriftTolerance:    viper.GetDuration(driftTolerance.flagKey),
		SeekTolerance:     viper.GetDuration(seekTolerance.flagKey),
		LoadLatency:       viper.GetDuration(loadLatency.flagKey),
		ResolveMedia:      viper.GetBool(resolveMedia.flagKey),
		OEmbedURL:         viper.GetString(oembedURL.flagKey),
		RedisHost:         viper.GetString(redisHost.flagKey),
		RedisPort:         viper.GetInt(redisPort.flagKey),
		RedisPassword:     viper.GetString(redisPassword.flagKey),
		SearchCacheTTL:    viper.GetDuration(searchCacheTTL.flagKey),
	}

	return config
}

func main() {
	_ = godotenv.Load()

	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
