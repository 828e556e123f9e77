package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Kafka           KafkaConfig           `mapstructure:"kafka"`
	Log             LogConfig             `mapstructure:"log"`
	Minio           MinioConfig           `mapstructure:"minio"`
	Whisper         WhisperConfig         `mapstructure:"whisper"`
	Diarization     DiarizationConfig     `mapstructure:"diarization"`
	Worker          WorkerConfig          `mapstructure:"worker"`
	Retry           RetryConfig           `mapstructure:"retry"`
	Entitlement     EntitlementConfig     `mapstructure:"entitlement"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"service_registry"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig configures the MySQL connection pool.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// KafkaConfig configures the job-submission consumer.
type KafkaConfig struct {
	Enabled             bool              `mapstructure:"enabled"`
	BootstrapServers    []string          `mapstructure:"bootstrap_servers"`
	ClientID            string            `mapstructure:"client_id"`
	GroupID             string            `mapstructure:"group_id"`
	Topics              KafkaTopicsConfig `mapstructure:"topics"`
	CommitOnDecodeError bool              `mapstructure:"commit_on_decode_error"`
}

type KafkaTopicsConfig struct {
	TranscriptionJobs string `mapstructure:"transcription_jobs"`
}

// LogConfig configures logrus output.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// MinioConfig configures object storage for media and model weights.
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	MediaBucket     string `mapstructure:"media_bucket"`
	ModelBucket     string `mapstructure:"model_bucket"`
}

// WhisperConfig configures model loading and inference.
type WhisperConfig struct {
	CacheDir      string        `mapstructure:"cache_dir"`
	PythonPath    string        `mapstructure:"python_path"`
	FFmpegPath    string        `mapstructure:"ffmpeg_path"`
	FFprobePath   string        `mapstructure:"ffprobe_path"`
	Device        string        `mapstructure:"device"`
	LoadTimeout   time.Duration `mapstructure:"load_timeout"`
	TempDir       string        `mapstructure:"temp_dir"`
	MemoryCeiling int64         `mapstructure:"memory_ceiling_mb"`
}

// DiarizationConfig configures the optional speaker diarization engine.
type DiarizationConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	AuthToken   string `mapstructure:"auth_token"`
	MinSpeakers int    `mapstructure:"min_speakers"`
	MaxSpeakers int    `mapstructure:"max_speakers"`
}

// WorkerConfig configures the claim-and-process loops.
type WorkerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	WorkerID            string        `mapstructure:"worker_id"`
	LoopCount           int           `mapstructure:"loop_count"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	SoftTimeLimit       time.Duration `mapstructure:"soft_time_limit"`
	HardTimeLimit       time.Duration `mapstructure:"hard_time_limit"`
	MaxJobsPerLoop      int           `mapstructure:"max_jobs_per_loop"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	StuckThreshold      time.Duration `mapstructure:"stuck_threshold"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// RetryConfig tunes transient-failure backoff.
type RetryConfig struct {
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// EntitlementConfig maps subscription plans onto model tiers and diarization access.
type EntitlementConfig struct {
	Plans       map[string]PlanConfig `mapstructure:"plans"`
	DefaultPlan string                `mapstructure:"default_plan"`
}

// PlanConfig is one subscription plan's capability set.
type PlanConfig struct {
	MaxTier     string `mapstructure:"max_tier"`
	Diarization bool   `mapstructure:"diarization"`
}

// ServiceRegistryConfig configures etcd registration.
type ServiceRegistryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoints       []string      `mapstructure:"endpoints"`
	ServiceName     string        `mapstructure:"service_name"`
	ServiceID       string        `mapstructure:"service_id"`
	RegisterHost    string        `mapstructure:"register_host"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// SetGlobalConfig publishes the process-wide configuration. Must run before
// resource initialization.
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// GetGlobalConfig returns the process-wide configuration, or nil before startup.
func GetGlobalConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// Load reads the yaml config file, applies env overrides and defaults.
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("service_registry.enabled", true)
	viper.SetDefault("kafka.enabled", true)
	viper.SetDefault("kafka.client_id", "transcribe-service")
	viper.SetDefault("kafka.group_id", "transcribe-service-group")
	viper.SetDefault("kafka.bootstrap_servers", []string{"localhost:29092"})
	viper.SetDefault("kafka.topics.transcription_jobs", "transcription.jobs")
	viper.SetDefault("kafka.commit_on_decode_error", true)

	viper.SetEnvPrefix("TRANSCRIBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

// normalize fills defaults for anything the config file left unset.
func (c *Config) normalize() {
	if c.Server.Port == 0 {
		c.Server.Port = 8084
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}

	if c.Whisper.CacheDir == "" {
		c.Whisper.CacheDir = "/tmp/whisper-cache"
	}
	if c.Whisper.PythonPath == "" {
		c.Whisper.PythonPath = "python3"
	}
	if c.Whisper.FFmpegPath == "" {
		c.Whisper.FFmpegPath = "ffmpeg"
	}
	if c.Whisper.FFprobePath == "" {
		c.Whisper.FFprobePath = "ffprobe"
	}
	if c.Whisper.Device == "" {
		c.Whisper.Device = "auto"
	}
	if c.Whisper.TempDir == "" {
		c.Whisper.TempDir = "/tmp/transcribe"
	}
	if c.Whisper.LoadTimeout == 0 {
		c.Whisper.LoadTimeout = 5 * time.Minute
	}

	if c.Worker.LoopCount <= 0 {
		c.Worker.LoopCount = 1
	}
	if c.Worker.PollInterval == 0 {
		c.Worker.PollInterval = 3 * time.Second
	}
	if c.Worker.SoftTimeLimit == 0 {
		c.Worker.SoftTimeLimit = time.Hour
	}
	if c.Worker.HardTimeLimit <= c.Worker.SoftTimeLimit {
		c.Worker.HardTimeLimit = c.Worker.SoftTimeLimit + 5*time.Minute
	}
	if c.Worker.MaxJobsPerLoop <= 0 {
		c.Worker.MaxJobsPerLoop = 10
	}
	if c.Worker.SweepInterval == 0 {
		c.Worker.SweepInterval = 30 * time.Second
	}
	// A stuck threshold at or below the hard time limit would let the
	// sweeper re-open jobs whose worker is still inside its deadline.
	if c.Worker.StuckThreshold <= c.Worker.HardTimeLimit {
		c.Worker.StuckThreshold = c.Worker.HardTimeLimit + 30*time.Minute
	}
	if c.Worker.ShutdownGracePeriod == 0 {
		c.Worker.ShutdownGracePeriod = 10 * time.Second
	}

	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = time.Minute
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 5 * time.Minute
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}

	if c.Entitlement.DefaultPlan == "" {
		c.Entitlement.DefaultPlan = "free"
	}
	if len(c.Entitlement.Plans) == 0 {
		c.Entitlement.Plans = map[string]PlanConfig{
			"free":       {MaxTier: "base"},
			"basic":      {MaxTier: "small"},
			"pro":        {MaxTier: "medium", Diarization: true},
			"enterprise": {MaxTier: "large", Diarization: true},
		}
	}

	if c.Minio.MediaBucket == "" {
		c.Minio.MediaBucket = "media-uploads"
	}
	if c.Minio.ModelBucket == "" {
		c.Minio.ModelBucket = "whisper-models"
	}

	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:29092"}
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "transcribe-service"
	}

	if c.ServiceRegistry.TTL == 0 {
		c.ServiceRegistry.TTL = 30 * time.Second
	}
	if c.ServiceRegistry.RefreshInterval == 0 {
		c.ServiceRegistry.RefreshInterval = 10 * time.Second
	}
	if c.ServiceRegistry.ServiceName == "" {
		c.ServiceRegistry.ServiceName = "transcribe-service"
	}
}

// GetDSN builds the MySQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	charset := c.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, charset)
}

// GetRedisAddr returns host:port for the Redis client.
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
