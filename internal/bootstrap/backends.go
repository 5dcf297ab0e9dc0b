// Package bootstrap turns a loaded configuration into the concrete backends
// and the HTTP application that runs on them.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/qcom/intake/internal/config"
	"github.com/qcom/intake/internal/kv"
	"github.com/qcom/intake/internal/mailer"
	"github.com/qcom/intake/internal/notify"
	"github.com/qcom/intake/internal/repository"
	"github.com/qcom/intake/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisKeyPrefix = "intake:"

// OpenStore connects the repositories selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*repository.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, err := repository.ConnectMongo(ctx, cfg.Mongo.URI, logger)
		if err != nil {
			return nil, err
		}
		store, err := repository.NewMongoStore(ctx, client, cfg.Mongo.Database, logger)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return store, nil

	case config.StoreDynamoDB:
		client, err := newDynamoClient(ctx, &cfg.DynamoDB, logger)
		if err != nil {
			return nil, err
		}
		return repository.NewDynamoStore(client, cfg.DynamoDB.TableName, logger), nil

	case config.StoreMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func newDynamoClient(ctx context.Context, cfg *config.DynamoDBConfig, logger *logrus.Logger) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	logger.WithField("table", cfg.TableName).Info("DynamoDB client initialized")
	return client, nil
}

// OpenKV returns Redis when REDIS_ENDPOINT is set and a process-local store
// otherwise. Sweepers lists the stores that need periodic expiry.
func OpenKV(ctx context.Context, cfg *config.RedisConfig, logger *logrus.Logger) (store kv.Store, sweepers []kv.Sweeper, closeFn func() error, err error) {
	if cfg.Endpoint == "" {
		mem := kv.NewMemoryStore()
		return mem, []kv.Sweeper{mem}, func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Endpoint,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithField("endpoint", cfg.Endpoint).Info("Redis client initialized")
	return kv.NewRedisStore(client, redisKeyPrefix), nil, client.Close, nil
}

// OpenFileStore returns the upload backend. localDir is empty unless files
// are stored on disk and must be served by this process.
func OpenFileStore(ctx context.Context, cfg *config.UploadConfig) (store storage.FileStore, localDir string, err error) {
	switch cfg.Driver {
	case config.UploadS3:
		s3Store, err := storage.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint, cfg.S3PublicURL)
		if err != nil {
			return nil, "", err
		}
		return s3Store, "", nil
	default:
		local, err := storage.NewLocalStore(cfg.Dir, cfg.PublicPath)
		if err != nil {
			return nil, "", err
		}
		return local, local.Dir(), nil
	}
}

// NewMailer sends through Brevo when an API key is configured and only logs
// messages otherwise.
func NewMailer(cfg *config.MailConfig, logger *logrus.Logger) mailer.Mailer {
	if cfg.BrevoAPIKey == "" || cfg.FromEmail == "" {
		logger.Warn("BREVO_API_KEY or MAIL_FROM_EMAIL not set; emails are logged instead of sent")
		return mailer.NewLogMailer(logger)
	}
	return mailer.NewBrevoClient(cfg.BrevoAPIKey, cfg.FromEmail, cfg.FromName)
}

// NewDispatcher builds the submission notifiers that are configured. The
// returned close func flushes the Kafka writer when one was created.
func NewDispatcher(cfg *config.Config, m mailer.Mailer, logger *logrus.Logger) (*notify.Dispatcher, func() error) {
	notifiers := []notify.Notifier{notify.NewConfirmation(m)}
	closeFn := func() error { return nil }

	if cfg.Notify.ChatWebhookURL != "" {
		notifiers = append(notifiers, notify.NewChatWebhook(cfg.Notify.ChatWebhookURL, cfg.Notify.Timeout, logger))
	}
	if cfg.Notify.SheetWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSheetWebhook(cfg.Notify.SheetWebhookURL, cfg.Notify.Timeout, logger))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		notifiers = append(notifiers, publisher)
		closeFn = publisher.Close
	}

	names := make([]string, 0, len(notifiers))
	for _, n := range notifiers {
		names = append(names, n.Name())
	}
	logger.WithField("notifiers", names).Info("Submission notifiers configured")

	return notify.NewDispatcher(cfg.Notify.Timeout, logger, notifiers...), closeFn
}
