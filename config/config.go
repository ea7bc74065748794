package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type (
	APP struct {
		Name      string
		Host      string
		Port      string
		Env       string
		JWTSecret string
	}
	DB struct {
		User     string
		Password string
		Name     string
		Host     string
		Port     string
	}
	S3 struct {
		Region          string
		AccessKeyID     string
		SecretAccessKey string
		BucketUploads   string
		// BaseEndpoint overrides the AWS endpoint (minio etc.); empty for real S3.
		BaseEndpoint string
	}
	MQ struct {
		User            string
		Password        string
		Vhost           string
		Host            string
		AmqpPort        string
		Exchange        string
		ExchangeType    string
		ProcessingQueue string
		DownloadQueue   string
	}
	Upload struct {
		// PresignTTL bounds both the presigned URL and the session itself.
		PresignTTL   time.Duration
		MultipartTTL time.Duration
		MaxParts     int
	}
	Dispatcher struct {
		Interval       time.Duration
		Batch          int
		Lease          time.Duration
		AttemptTimeout time.Duration
	}
	Webhook struct {
		Timeout time.Duration
	}
	Sweep struct {
		ExpireInterval time.Duration
		ExpireBatch    int
		RetryInterval  time.Duration
		RetryAfter     time.Duration
		RetryBatch     int
	}

	Config struct {
		App        APP
		DB         DB
		S3         S3
		MQ         MQ
		Upload     Upload
		Dispatcher Dispatcher
		Webhook    Webhook
		Sweep      Sweep
	}
)

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvSeconds(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func Load() Config {
	app := APP{
		Name:      getEnv("SERVICE_NAME", "transfermanagerapi"),
		Host:      getEnv("SERVICE_HOST", ""),
		Port:      getEnv("SERVICE_PORT", "8080"),
		Env:       getEnv("SERVICE_ENV", ""),
		JWTSecret: getEnv("SERVICE_JWT_SECRET", ""),
	}
	db := DB{
		User:     getEnv("POSTGRES_USER", ""),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		Name:     getEnv("POSTGRES_DB", ""),
		Host:     getEnv("POSTGRES_HOST", ""),
		Port:     getEnv("POSTGRES_PORT", ""),
	}
	s3 := S3{
		Region:          getEnv("S3_REGION", ""),
		AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		BucketUploads:   getEnv("S3_BUCKET_UPLOADS", ""),
		BaseEndpoint:    getEnv("S3_BASE_ENDPOINT", ""),
	}
	mq := MQ{
		User:            getEnv("RABBITMQ_USER", ""),
		Password:        getEnv("RABBITMQ_PASSWORD", ""),
		Vhost:           getEnv("RABBITMQ_VHOST", ""),
		Host:            getEnv("RABBITMQ_HOST", ""),
		AmqpPort:        getEnv("RABBITMQ_AMQP_PORT", ""),
		Exchange:        getEnv("RABBITMQ_EXCHANGE", "transfers"),
		ExchangeType:    getEnv("RABBITMQ_EXCHANGE_TYPE", "direct"),
		ProcessingQueue: getEnv("RABBITMQ_PROCESSING_QUEUE", "file-processing"),
		DownloadQueue:   getEnv("RABBITMQ_DOWNLOAD_QUEUE", "external-downloads"),
	}
	upload := Upload{
		PresignTTL:   getEnvSeconds("UPLOAD_PRESIGN_TTL_SECONDS", 15*time.Minute),
		MultipartTTL: getEnvSeconds("UPLOAD_MULTIPART_TTL_SECONDS", 6*time.Hour),
		MaxParts:     getEnvInt("UPLOAD_MAX_PARTS", 10000),
	}
	dispatcher := Dispatcher{
		Interval:       getEnvSeconds("OUTBOX_DISPATCH_INTERVAL_SECONDS", 5*time.Second),
		Batch:          getEnvInt("OUTBOX_DISPATCH_BATCH", 50),
		Lease:          getEnvSeconds("OUTBOX_DISPATCH_LEASE_SECONDS", 30*time.Second),
		AttemptTimeout: getEnvSeconds("OUTBOX_DISPATCH_ATTEMPT_TIMEOUT_SECONDS", 10*time.Second),
	}
	webhook := Webhook{
		Timeout: getEnvSeconds("WEBHOOK_TIMEOUT_SECONDS", 10*time.Second),
	}
	sweep := Sweep{
		ExpireInterval: getEnvSeconds("SWEEP_EXPIRE_INTERVAL_SECONDS", time.Minute),
		ExpireBatch:    getEnvInt("SWEEP_EXPIRE_BATCH", 100),
		RetryInterval:  getEnvSeconds("SWEEP_RETRY_INTERVAL_SECONDS", 30*time.Second),
		RetryAfter:     getEnvSeconds("SWEEP_RETRY_AFTER_SECONDS", time.Minute),
		RetryBatch:     getEnvInt("SWEEP_RETRY_BATCH", 50),
	}

	return Config{
		App:        app,
		DB:         db,
		S3:         s3,
		MQ:         mq,
		Upload:     upload,
		Dispatcher: dispatcher,
		Webhook:    webhook,
		Sweep:      sweep,
	}
}

func (c Config) DBDSN() (string, error) {
	if c.DB.User == "" || c.DB.Name == "" || c.DB.Host == "" || c.DB.Port == "" {
		return "", fmt.Errorf("incomplete DB config")
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.Name,
	), nil
}

func (c Config) AMQPDSN() (string, error) {
	if c.MQ.User == "" || c.MQ.Host == "" || c.MQ.AmqpPort == "" {
		return "", fmt.Errorf("invalid MQ config: user, host and amqp port are required")
	}

	return fmt.Sprintf(
		"%s://%s@%s:%s/%s",
		"amqp",
		url.UserPassword(c.MQ.User, c.MQ.Password).String(),
		c.MQ.Host,
		c.MQ.AmqpPort,
		url.PathEscape(c.MQ.Vhost),
	), nil
}
