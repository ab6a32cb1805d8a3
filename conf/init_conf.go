package conf

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config application configuration structure
type Config struct {
	Env            string
	Port           string
	Project        string // reported by the health endpoint
	SwaggerBaseUrl string // Swagger API base URL (e.g., "example.com:8000")
	CorsOrigins    []string
	MaxUploadSize  int64 // bytes

	Log      LogConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	GenAI    GenAIConfig
	Video    VideoConfig
	Pool     PoolConfig
	Persist  PersistConfig
}

// LogConfig logging configuration
type LogConfig struct {
	Mode string // dev or prod
}

// AuthConfig token verification configuration
type AuthConfig struct {
	FirebaseProjectID string
	JWKSURL           string // Optional override of the secure-token JWKS endpoint
}

// StorageConfig storage backend configuration
type StorageConfig struct {
	Backend string // cloud or local
	Local   LocalStorageConfig
	Object  ObjectStorageConfig
}

// LocalStorageConfig local storage configuration, also used as the upload fallback
type LocalStorageConfig struct {
	MediaRoot     string
	DataDir       string
	PublicBaseURL string
	UID           string // identity assigned to every token in local mode
	Email         string
	Name          string
}

// ObjectStorageConfig cloud object store configuration
type ObjectStorageConfig struct {
	Type  string // gcs, s3, minio, oss
	GCS   GCSStorageConfig
	OSS   OSSStorageConfig
	S3    S3StorageConfig
	MinIO MinIOStorageConfig
}

// GCSStorageConfig Google Cloud Storage configuration
type GCSStorageConfig struct {
	Bucket          string
	CredentialsFile string
	CredentialsJSON string
	Endpoint        string // Emulator endpoint, optional
	Domain          string // CDN or public base URL, optional
}

// OSSStorageConfig OSS storage configuration
type OSSStorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Domain    string
}

// S3StorageConfig AWS S3 storage configuration
type S3StorageConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Domain    string
	Endpoint  string // Optional custom endpoint
}

// MinIOStorageConfig MinIO storage configuration
type MinIOStorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Domain    string
}

// DatabaseConfig cloud ledger database configuration
type DatabaseConfig struct {
	Type         string // mysql, postgres, pebble
	Dsn          string
	MaxOpenConns int
	MaxIdleConns int
	DataDir      string // PebbleDB data directory
}

// RedisConfig redis configuration
type RedisConfig struct {
	Enabled  bool   // Enable listing cache
	Host     string // Redis host
	Port     int    // Redis port
	Password string // Redis password (optional)
	DB       int    // Redis database number
	CacheTTL int    // Cache TTL in seconds (default: 300)
}

// GenAIConfig generative model configuration
type GenAIConfig struct {
	Project    string
	Location   string
	ImageModel string
	EditModel  string
	TryOnModel string
	VideoModel string
	TextModel  string
}

// VideoConfig long-running video job configuration
type VideoConfig struct {
	PollInterval int // seconds
	MaxAttempts  int
	MaxWait      int // seconds
}

// PoolConfig generation worker pool configuration
type PoolConfig struct {
	GenerationWorkers int
}

// PersistConfig background persistence configuration
type PersistConfig struct {
	Workers       int
	QueueSize     int // per lane
	DeadLetterDir string
}

// GetYaml returns the config file path for the given environment.
func GetYaml(env string) string {
	if env == "" {
		env = EnvLocal
	}
	return fmt.Sprintf("./conf/conf_%s.yaml", env)
}

// Environments accepted by -env.
const (
	EnvLocal = "loc"
	EnvTest  = "test"
	EnvProd  = "pro"
)

// Load reads conf/conf_<env>.yaml, applies STUDIO_* environment overrides and
// fills defaults. A missing config file is not an error.
func Load(env string) (*Config, error) {
	return LoadFile(env, GetYaml(env))
}

// LoadFile is Load with an explicit config path.
func LoadFile(env, path string) (*Config, error) {
	if env != EnvProd {
		// .env is a developer convenience only
		_ = godotenv.Overload(".env")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("Fatal error config file: %s", err)
		}
	}

	cfg := &Config{
		Env:            env,
		Port:           v.GetString("port"),
		Project:        v.GetString("project"),
		SwaggerBaseUrl: v.GetString("swagger_base_url"),
		CorsOrigins:    v.GetStringSlice("cors_origins"),
		MaxUploadSize:  v.GetInt64("max_upload_size") * 1024 * 1024, // MB to bytes

		Log: LogConfig{
			Mode: v.GetString("log.mode"),
		},

		Auth: AuthConfig{
			FirebaseProjectID: v.GetString("auth.firebase_project_id"),
			JWKSURL:           v.GetString("auth.jwks_url"),
		},

		Storage: StorageConfig{
			Backend: v.GetString("storage.backend"),
			Local: LocalStorageConfig{
				MediaRoot:     v.GetString("storage.local.media_root"),
				DataDir:       v.GetString("storage.local.data_dir"),
				PublicBaseURL: v.GetString("storage.local.public_base_url"),
				UID:           v.GetString("storage.local.uid"),
				Email:         v.GetString("storage.local.email"),
				Name:          v.GetString("storage.local.name"),
			},
			Object: ObjectStorageConfig{
				Type: v.GetString("storage.object.type"),
				GCS: GCSStorageConfig{
					Bucket:          v.GetString("storage.object.gcs.bucket"),
					CredentialsFile: v.GetString("storage.object.gcs.credentials_file"),
					CredentialsJSON: v.GetString("storage.object.gcs.credentials_json"),
					Endpoint:        v.GetString("storage.object.gcs.endpoint"),
					Domain:          v.GetString("storage.object.gcs.domain"),
				},
				OSS: OSSStorageConfig{
					Endpoint:  v.GetString("storage.object.oss.endpoint"),
					AccessKey: v.GetString("storage.object.oss.access_key"),
					SecretKey: v.GetString("storage.object.oss.secret_key"),
					Bucket:    v.GetString("storage.object.oss.bucket"),
					Domain:    v.GetString("storage.object.oss.domain"),
				},
				S3: S3StorageConfig{
					Region:    v.GetString("storage.object.s3.region"),
					AccessKey: v.GetString("storage.object.s3.access_key"),
					SecretKey: v.GetString("storage.object.s3.secret_key"),
					Bucket:    v.GetString("storage.object.s3.bucket"),
					Domain:    v.GetString("storage.object.s3.domain"),
					Endpoint:  v.GetString("storage.object.s3.endpoint"),
				},
				MinIO: MinIOStorageConfig{
					Endpoint:  v.GetString("storage.object.minio.endpoint"),
					AccessKey: v.GetString("storage.object.minio.access_key"),
					SecretKey: v.GetString("storage.object.minio.secret_key"),
					Bucket:    v.GetString("storage.object.minio.bucket"),
					UseSSL:    v.GetBool("storage.object.minio.use_ssl"),
					Domain:    v.GetString("storage.object.minio.domain"),
				},
			},
		},

		Database: DatabaseConfig{
			Type:         v.GetString("database.type"),
			Dsn:          v.GetString("database.dsn"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
			DataDir:      v.GetString("database.data_dir"),
		},

		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			CacheTTL: v.GetInt("redis.cache_ttl"),
		},

		GenAI: GenAIConfig{
			Project:    v.GetString("genai.project"),
			Location:   v.GetString("genai.location"),
			ImageModel: v.GetString("genai.image_model"),
			EditModel:  v.GetString("genai.edit_model"),
			TryOnModel: v.GetString("genai.tryon_model"),
			VideoModel: v.GetString("genai.video_model"),
			TextModel:  v.GetString("genai.text_model"),
		},

		Video: VideoConfig{
			PollInterval: v.GetInt("video.poll_interval"),
			MaxAttempts:  v.GetInt("video.max_attempts"),
			MaxWait:      v.GetInt("video.max_wait"),
		},

		Pool: PoolConfig{
			GenerationWorkers: v.GetInt("pool.generation_workers"),
		},

		Persist: PersistConfig{
			Workers:       v.GetInt("persist.workers"),
			QueueSize:     v.GetInt("persist.queue_size"),
			DeadLetterDir: v.GetString("persist.dead_letter_dir"),
		},
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = EnvLocal
	}
	if c.Port == "" {
		c.Port = "8000"
	}
	if c.Project == "" {
		c.Project = "fashion-studio-local"
	}
	if c.SwaggerBaseUrl == "" {
		c.SwaggerBaseUrl = "localhost:" + c.Port
	}
	if len(c.CorsOrigins) == 0 {
		c.CorsOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = 32 * 1024 * 1024
	}
	if c.Log.Mode == "" {
		if c.Env == EnvProd {
			c.Log.Mode = "prod"
		} else {
			c.Log.Mode = "dev"
		}
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "local"
	}
	if c.Storage.Local.MediaRoot == "" {
		c.Storage.Local.MediaRoot = "./media"
	}
	if c.Storage.Local.DataDir == "" {
		c.Storage.Local.DataDir = "./data"
	}
	if c.Storage.Local.PublicBaseURL == "" {
		c.Storage.Local.PublicBaseURL = "http://localhost:" + c.Port
	}
	if c.Storage.Local.UID == "" {
		c.Storage.Local.UID = "local-user"
	}
	if c.Storage.Local.Email == "" {
		c.Storage.Local.Email = "user@example.com"
	}
	if c.Storage.Local.Name == "" {
		c.Storage.Local.Name = "Local User"
	}
	if c.Storage.Object.Type == "" {
		c.Storage.Object.Type = "gcs"
	}
	if c.Database.Type == "" {
		c.Database.Type = "pebble"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 100
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.DataDir == "" {
		c.Database.DataDir = "./data/ledger"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 300
	}
	if c.GenAI.Location == "" {
		c.GenAI.Location = "global"
	}
	if c.GenAI.ImageModel == "" {
		c.GenAI.ImageModel = "gemini-2.5-flash-image"
	}
	if c.GenAI.EditModel == "" {
		c.GenAI.EditModel = "gemini-2.5-flash-image"
	}
	if c.GenAI.TryOnModel == "" {
		c.GenAI.TryOnModel = "virtual-try-on-preview-08-04"
	}
	if c.GenAI.VideoModel == "" {
		c.GenAI.VideoModel = "veo-3.1-generate-001"
	}
	if c.GenAI.TextModel == "" {
		c.GenAI.TextModel = "gemini-2.5-flash"
	}
	if c.Video.PollInterval == 0 {
		c.Video.PollInterval = 5
	}
	if c.Video.MaxAttempts == 0 {
		c.Video.MaxAttempts = 120
	}
	if c.Video.MaxWait == 0 {
		c.Video.MaxWait = 600
	}
	if c.Pool.GenerationWorkers == 0 {
		c.Pool.GenerationWorkers = 8
	}
	if c.Persist.Workers == 0 {
		c.Persist.Workers = 4
	}
	if c.Persist.QueueSize == 0 {
		c.Persist.QueueSize = 256
	}
	if c.Persist.DeadLetterDir == "" {
		c.Persist.DeadLetterDir = "./data/dead_letters"
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "cloud", "local":
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend)
	}
	if c.Video.PollInterval < 0 || c.Video.MaxAttempts < 0 || c.Video.MaxWait < 0 {
		return fmt.Errorf("video poll settings must not be negative")
	}
	if c.Pool.GenerationWorkers < 0 || c.Persist.Workers < 0 || c.Persist.QueueSize < 0 {
		return fmt.Errorf("worker counts must not be negative")
	}
	return nil
}
