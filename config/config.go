package config

import "time"

type AppConfig struct {
	APIPort      string `env:"PORT,required" envDefault:"12222"`
	APIKey       string `env:"API_KEY"`
	BaseURL      string `env:"BASE_URL" envDefault:"http://localhost:12222"`
	RabbitMQURL  string `env:"RABBITMQ_URL"`
	CookieSecret string `env:"ACCESS_COOKIE_SECRET,required"`
	CookieSecure bool   `env:"ACCESS_COOKIE_SECURE" envDefault:"true"`
	MaxUploadMB  int64  `env:"MAX_UPLOAD_MB" envDefault:"20"`
}

type DatabaseConfig struct {
	Host            string `env:"MXVALIDATOR_POSTGRES_HOST,required"`
	Port            string `env:"MXVALIDATOR_POSTGRES_PORT,required"`
	User            string `env:"MXVALIDATOR_POSTGRES_USER,required"`
	DBName          string `env:"MXVALIDATOR_POSTGRES_DB_NAME,required"`
	Password        string `env:"MXVALIDATOR_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MXVALIDATOR_POSTGRES_DB_MAX_CONN" envDefault:"100"`
	MaxIdleConn     int    `env:"MXVALIDATOR_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"MXVALIDATOR_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"MXVALIDATOR_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MXVALIDATOR_POSTGRES_SSL_MODE" envDefault:"require"`
}

// ResolverConfig bounds the per-batch MX fan-out.
type ResolverConfig struct {
	Concurrency int           `env:"RESOLVER_CONCURRENCY" envDefault:"10"`
	Timeout     time.Duration `env:"RESOLVER_TIMEOUT" envDefault:"10s"`
}

type StorageConfig struct {
	Provider        string `env:"STORAGE_PROVIDER" envDefault:"r2"`
	AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AWSRegion       string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"STORAGE_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"STORAGE_ACCESS_KEY_SECRET"`
	ExportBucket    string `env:"BUCKET_NAME_EXPORTS" envDefault:"mx-exports"`
	CDNDomain       string `env:"STORAGE_CDN_DOMAIN"`
}

// Enabled reports whether credentials for archived exports are present.
func (c *StorageConfig) Enabled() bool {
	return c != nil && c.AccessKeyID != "" && c.AccessKeySecret != ""
}

type CronConfig struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Stale pending sweep, every five minutes
	CronScheduleStalePendingSweep string        `env:"CRON_SCHEDULE_STALE_PENDING_SWEEP" envDefault:"0 */5 * * * *"`
	StalePendingAfter             time.Duration `env:"CRON_STALE_PENDING_AFTER" envDefault:"15m"`
	StalePendingLimit             int           `env:"CRON_STALE_PENDING_LIMIT" envDefault:"200"`
	Namespace                     string        `env:"POD_NAMESPACE" envDefault:"default"`
	PodName                       string        `env:"POD_NAME" envDefault:"local"`
	LocalDev                      bool          `env:"LOCAL_DEV" envDefault:"false"`
}
