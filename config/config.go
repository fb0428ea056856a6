package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ServiceBus ServiceBusConfig
	Elastic    ElasticConfig
	NewRelic   NewRelicConfig
	CloudStack CloudStackConfig
	Worker     WorkerConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int
	Mode string // debug, release, test
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServiceBusConfig holds the Azure Service Bus configuration
type ServiceBusConfig struct {
	ConnectionString string
	JobQueueName     string
	EmailQueueName   string
}

// ElasticConfig holds the Elasticsearch configuration for the audit index
type ElasticConfig struct {
	URL      string
	Username string
	Password string
	Index    string
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// CloudStackConfig holds the orchestration platform API configuration
type CloudStackConfig struct {
	Endpoint  string
	APIKey    string
	SecretKey string
	TimeoutS  int
}

// WorkerConfig holds the job processor configuration
type WorkerConfig struct {
	Count              int
	QueueSize          int
	ReconcileMinutes   int
	ArchiveAfterDays   int
	ArchiveSweepHours  int
}

// InitConfig initializes the configuration using Viper
func InitConfig(cfgFile string) error {
	setDefaults()

	// Use config file from the flag if provided
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/cloudpanel")
		viper.SetConfigName("config")
	}

	// Enable automatic environment variable binding.
	// For example, CLOUDPANEL_SERVER_PORT will override server.port
	viper.SetEnvPrefix("CLOUDPANEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("No config file found, using defaults and environment variables")
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8084)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "cloudpanel")
	viper.SetDefault("database.password", "cloudpanel")
	viper.SetDefault("database.dbname", "cloudpanel_db")
	viper.SetDefault("database.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Service Bus defaults - no default connection string for security
	viper.SetDefault("servicebus.jobqueuename", "job-callbacks")
	viper.SetDefault("servicebus.emailqueuename", "email-jobs")

	// Elasticsearch defaults
	viper.SetDefault("elastic.url", "http://localhost:9200")
	viper.SetDefault("elastic.index", "event-audit")

	// New Relic defaults
	viper.SetDefault("newrelic.appname", "CloudPanel Local")
	viper.SetDefault("newrelic.enabled", false)

	// CloudStack defaults
	viper.SetDefault("cloudstack.endpoint", "http://localhost:8080/client/api")
	viper.SetDefault("cloudstack.timeouts", 30)

	// Worker defaults
	viper.SetDefault("worker.count", 0) // 0 means derive from CPU count
	viper.SetDefault("worker.queuesize", 10000)
	viper.SetDefault("worker.reconcileminutes", 5)
	viper.SetDefault("worker.archiveafterdays", 30)
	viper.SetDefault("worker.archivesweephours", 24)
}

// Load loads the configuration
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: viper.GetInt("server.port"),
			Mode: viper.GetString("server.mode"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("database.host"),
			Port:     viper.GetInt("database.port"),
			User:     viper.GetString("database.user"),
			Password: viper.GetString("database.password"),
			DBName:   viper.GetString("database.dbname"),
			SSLMode:  viper.GetString("database.sslmode"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetInt("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		ServiceBus: ServiceBusConfig{
			ConnectionString: viper.GetString("servicebus.connectionstring"),
			JobQueueName:     viper.GetString("servicebus.jobqueuename"),
			EmailQueueName:   viper.GetString("servicebus.emailqueuename"),
		},
		Elastic: ElasticConfig{
			URL:      viper.GetString("elastic.url"),
			Username: viper.GetString("elastic.username"),
			Password: viper.GetString("elastic.password"),
			Index:    viper.GetString("elastic.index"),
		},
		NewRelic: NewRelicConfig{
			AppName:    viper.GetString("newrelic.appname"),
			LicenseKey: viper.GetString("newrelic.licensekey"),
			Enabled:    viper.GetBool("newrelic.enabled"),
		},
		CloudStack: CloudStackConfig{
			Endpoint:  viper.GetString("cloudstack.endpoint"),
			APIKey:    viper.GetString("cloudstack.apikey"),
			SecretKey: viper.GetString("cloudstack.secretkey"),
			TimeoutS:  viper.GetInt("cloudstack.timeouts"),
		},
		Worker: WorkerConfig{
			Count:             viper.GetInt("worker.count"),
			QueueSize:         viper.GetInt("worker.queuesize"),
			ReconcileMinutes:  viper.GetInt("worker.reconcileminutes"),
			ArchiveAfterDays:  viper.GetInt("worker.archiveafterdays"),
			ArchiveSweepHours: viper.GetInt("worker.archivesweephours"),
		},
	}, nil
}
