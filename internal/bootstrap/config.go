package bootstrap

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config 结构体用于存储服务端配置
type Config struct {
	DBUser            string
	DBPassword        string
	DBHost            string
	DBPort            string
	DBName            string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	KeyPrefix         string // Redis Key 前缀
	JWTSecret         string
	JWTExpiryHours    int
	ServerPort        string
	LogLevel          string
	AppEnv            string // development / production
	CORSAllowedOrigin string
	CanvasWidth       int
	CanvasHeight      int
	PixelCooldown     time.Duration
	ActivityInterval  time.Duration
	RateLimitMax      int
	RateLimitWindow   time.Duration
	RestoreBoard      bool // 启动时用 MySQL 历史重建 Redis 画布
}

// LoadConfig 从 .env 文件 (如果存在) 和环境变量加载配置
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // 忽略错误，允许只使用环境变量

	cfg := &Config{
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            os.Getenv("DB_PORT"),
		DBName:            os.Getenv("DB_NAME"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:         envString("REDIS_KEY_PREFIX", "place:"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ServerPort:        envString("SERVER_PORT", "8080"),
		LogLevel:          envString("LOG_LEVEL", "info"),
		AppEnv:            envString("APP_ENV", "development"),
		CORSAllowedOrigin: envString("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	var err error
	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.JWTExpiryHours, err = envInt("JWT_EXPIRY_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.CanvasWidth, err = envInt("CANVAS_WIDTH", 1000); err != nil {
		return nil, err
	}
	if cfg.CanvasHeight, err = envInt("CANVAS_HEIGHT", 1000); err != nil {
		return nil, err
	}
	if cfg.PixelCooldown, err = envDuration("PIXEL_COOLDOWN", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ActivityInterval, err = envDuration("ACTIVITY_INTERVAL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = envInt("RATE_LIMIT_MAX", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = envDuration("RATE_LIMIT_WINDOW", time.Second); err != nil {
		return nil, err
	}
	if cfg.RestoreBoard, err = envBool("BOARD_RESTORE", false); err != nil {
		return nil, err
	}

	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", cfg.CanvasWidth, cfg.CanvasHeight)
	}
	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}

	cfg.LogLevel = validLogLevel(cfg.LogLevel)
	return cfg, nil
}

// ClientConfig 是无界面客户端的配置
type ClientConfig struct {
	APIURL        string
	WSURL         string
	Token         string
	Admin         bool
	AutoCamera    bool
	HotspotEvery  time.Duration
	TickRate      int // 每秒帧数
	DeepLink      string
	SnapshotPath  string
	SnapshotScale int
	CanvasWidth   int
	CanvasHeight  int
	LogLevel      string
	AppEnv        string
}

// LoadClientConfig 加载无界面客户端的配置
func LoadClientConfig() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		APIURL:       strings.TrimRight(envString("PLACE_API_URL", "http://localhost:8080"), "/"),
		WSURL:        os.Getenv("PLACE_WS_URL"),
		Token:        os.Getenv("PLACE_TOKEN"),
		DeepLink:     os.Getenv("PLACE_DEEP_LINK"),
		SnapshotPath: os.Getenv("PLACE_SNAPSHOT_PATH"),
		LogLevel:     envString("LOG_LEVEL", "info"),
		AppEnv:       envString("APP_ENV", "development"),
	}

	var err error
	if cfg.Admin, err = envBool("PLACE_ADMIN", false); err != nil {
		return nil, err
	}
	if cfg.AutoCamera, err = envBool("PLACE_AUTO_CAMERA", false); err != nil {
		return nil, err
	}
	if cfg.HotspotEvery, err = envDuration("PLACE_HOTSPOT_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.TickRate, err = envInt("PLACE_TICK_RATE", 60); err != nil {
		return nil, err
	}
	if cfg.SnapshotScale, err = envInt("PLACE_SNAPSHOT_SCALE", 1); err != nil {
		return nil, err
	}
	if cfg.CanvasWidth, err = envInt("CANVAS_WIDTH", 1000); err != nil {
		return nil, err
	}
	if cfg.CanvasHeight, err = envInt("CANVAS_HEIGHT", 1000); err != nil {
		return nil, err
	}

	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("PLACE_TICK_RATE must be positive, got %d", cfg.TickRate)
	}
	if cfg.SnapshotScale <= 0 {
		cfg.SnapshotScale = 1
	}
	if cfg.WSURL == "" {
		if cfg.WSURL, err = websocketURL(cfg.APIURL); err != nil {
			return nil, err
		}
	}

	cfg.LogLevel = validLogLevel(cfg.LogLevel)
	return cfg, nil
}

// TickInterval 返回帧间隔
func (c *ClientConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// websocketURL 由 API 地址推导推送地址: http(s)://host -> ws(s)://host/ws/place
func websocketURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid PLACE_API_URL %q: %w", apiURL, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported PLACE_API_URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/place"
	return u.String(), nil
}

func validLogLevel(level string) string {
	if _, err := logrus.ParseLevel(level); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", level)
		return "info"
	}
	return level
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
