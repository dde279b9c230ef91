// Package config loads run configuration from defaults, an optional YAML
// file, an optional .env file and the process environment, in that order of
// increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendNeo4j    = "neo4j"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress      string   `yaml:"server_address" validate:"required"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" validate:"min=1"`
	Environment        string   `yaml:"environment" validate:"oneof=development staging production test"`
	LogLevel           string   `yaml:"log_level" validate:"oneof=debug info warn error"`

	// AWS configuration
	AWSRegion        string `yaml:"aws_region" validate:"required"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint" validate:"omitempty,url"`
	EventBusName     string `yaml:"event_bus_name"`
	EventSource      string `yaml:"event_source" validate:"required"`

	// Parliament APIs
	MembersAPIURL string        `yaml:"members_api_url" validate:"required,url"`
	VotesAPIURL   string        `yaml:"votes_api_url" validate:"required,url"`
	APITimeout    time.Duration `yaml:"api_timeout" validate:"gt=0"`
	APIRateLimit  float64       `yaml:"api_rate_limit" validate:"gt=0"`
	APIRateBurst  int           `yaml:"api_rate_burst" validate:"gte=1"`

	// Pagination
	MPLoops          int `yaml:"mp_loops" validate:"gte=1"`
	MPTakePerLoop    int `yaml:"mp_take_per_loop" validate:"gte=1"`
	MPStride         int `yaml:"mp_stride" validate:"gte=0"`
	MPMinFullPage    int `yaml:"mp_min_full_page" validate:"gte=0,ltefield=MPTakePerLoop"`
	DivisionPageSize int `yaml:"division_page_size" validate:"gte=1"`
	DivisionMaxLoops int `yaml:"division_max_loops" validate:"gte=1"`
	VotePageSize     int `yaml:"vote_page_size" validate:"gte=1"`
	VoteMaxLoops     int `yaml:"vote_max_loops" validate:"gte=1"`

	// Similarity export
	SimilarityBatchSize int `yaml:"similarity_batch_size" validate:"gte=1"`
	SimilarityTopK      int `yaml:"similarity_top_k" validate:"gte=1"`

	// Stage flags
	CreateDivisions     bool `yaml:"create_divisions"`
	CreateMPs           bool `yaml:"create_mps"`
	CreateRelationships bool `yaml:"create_relationships"`

	// Graph store
	GraphBackend         string `yaml:"graph_backend" validate:"oneof=neo4j dynamodb"`
	Neo4jURI             string `yaml:"neo4j_uri" validate:"required_if=GraphBackend neo4j"`
	Neo4jUsername        string `yaml:"neo4j_username"`
	Neo4jPassword        string `yaml:"neo4j_password"`
	Neo4jDatabase        string `yaml:"neo4j_database"`
	SimilarityProjection string `yaml:"similarity_projection" validate:"required_if=GraphBackend neo4j"`
	GraphTable           string `yaml:"graph_table" validate:"required_if=GraphBackend dynamodb"`

	// Document store
	DocumentBackend string `yaml:"document_backend" validate:"oneof=dynamodb redis"`
	SimilarityTable string `yaml:"similarity_table" validate:"required_if=DocumentBackend dynamodb"`
	RedisAddr       string `yaml:"redis_addr" validate:"required_if=DocumentBackend redis"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db" validate:"gte=0"`
	RedisKeyPrefix  string `yaml:"redis_key_prefix"`

	// Observability
	EnableMetrics  bool   `yaml:"enable_metrics"`
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
	EnableTracing  bool   `yaml:"enable_tracing"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=EnableTracing true"`
	ServiceName    string `yaml:"service_name" validate:"required"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		ServerAddress:      ":8080",
		CORSAllowedOrigins: []string{"*"},
		Environment:        "development",
		LogLevel:           "info",

		AWSRegion:   "eu-west-2",
		EventSource: "mpgraph.sync",

		MembersAPIURL: "https://members-api.parliament.uk",
		VotesAPIURL:   "https://commonsvotes-api.parliament.uk",
		APITimeout:    30 * time.Second,
		APIRateLimit:  5,
		APIRateBurst:  5,

		MPLoops:          30,
		MPTakePerLoop:    25,
		MPMinFullPage:    20,
		DivisionPageSize: 25,
		DivisionMaxLoops: 1000,
		VotePageSize:     25,
		VoteMaxLoops:     1000,

		SimilarityBatchSize: 10,
		SimilarityTopK:      10,

		CreateDivisions:     true,
		CreateMPs:           true,
		CreateRelationships: true,

		GraphBackend:         BackendNeo4j,
		Neo4jURI:             "neo4j://localhost:7687",
		Neo4jUsername:        "neo4j",
		Neo4jDatabase:        "neo4j",
		SimilarityProjection: "mpVotes",
		GraphTable:           "mpgraph-graph",

		DocumentBackend: BackendDynamoDB,
		SimilarityTable: "mpgraph-similarity",
		RedisAddr:       "localhost:6379",
		RedisKeyPrefix:  "similarity",

		ServiceName: "mpgraph",
	}
}

// Load builds the configuration: defaults, then .env (which never
// overrides variables already set), then the YAML file named by CONFIG_FILE,
// then environment variables. The result is validated.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is an alias for Load
func LoadConfig() (*Config, error) {
	return Load()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	intVar := func(key string, dst *int) {
		if err := envInt(key, dst); err != nil {
			errs = append(errs, err)
		}
	}
	boolVar := func(key string, dst *bool) {
		if err := envBool(key, dst); err != nil {
			errs = append(errs, err)
		}
	}

	envString("SERVER_ADDRESS", &c.ServerAddress)
	envList("CORS_ALLOWED_ORIGINS", &c.CORSAllowedOrigins)
	envString("ENVIRONMENT", &c.Environment)
	envString("LOG_LEVEL", &c.LogLevel)

	envString("AWS_REGION", &c.AWSRegion)
	envString("DYNAMODB_ENDPOINT", &c.DynamoDBEndpoint)
	envString("EVENT_BUS_NAME", &c.EventBusName)
	envString("EVENT_SOURCE", &c.EventSource)

	envString("MEMBERS_API_URL", &c.MembersAPIURL)
	envString("VOTES_API_URL", &c.VotesAPIURL)
	if err := envDuration("API_TIMEOUT", &c.APITimeout); err != nil {
		errs = append(errs, err)
	}
	if err := envFloat("API_RATE_LIMIT", &c.APIRateLimit); err != nil {
		errs = append(errs, err)
	}
	intVar("API_RATE_BURST", &c.APIRateBurst)

	intVar("MP_LOOPS", &c.MPLoops)
	intVar("MP_TAKE_PER_LOOP", &c.MPTakePerLoop)
	intVar("MP_STRIDE", &c.MPStride)
	intVar("MP_MIN_FULL_PAGE", &c.MPMinFullPage)
	intVar("DIVISION_PAGE_SIZE", &c.DivisionPageSize)
	intVar("DIVISION_MAX_LOOPS", &c.DivisionMaxLoops)
	intVar("VOTE_PAGE_SIZE", &c.VotePageSize)
	intVar("VOTE_MAX_LOOPS", &c.VoteMaxLoops)

	intVar("SIMILARITY_BATCH_SIZE", &c.SimilarityBatchSize)
	intVar("SIMILARITY_TOP_K", &c.SimilarityTopK)

	boolVar("CREATE_DIVISIONS", &c.CreateDivisions)
	boolVar("CREATE_MPS", &c.CreateMPs)
	boolVar("CREATE_RELATIONSHIPS", &c.CreateRelationships)

	envString("GRAPH_BACKEND", &c.GraphBackend)
	envString("NEO4J_URI", &c.Neo4jURI)
	envString("NEO4J_USERNAME", &c.Neo4jUsername)
	envString("NEO4J_PASSWORD", &c.Neo4jPassword)
	envString("NEO4J_DATABASE", &c.Neo4jDatabase)
	envString("SIMILARITY_PROJECTION", &c.SimilarityProjection)
	envString("GRAPH_TABLE", &c.GraphTable)

	envString("DOCUMENT_BACKEND", &c.DocumentBackend)
	envString("SIMILARITY_TABLE", &c.SimilarityTable)
	envString("REDIS_ADDR", &c.RedisAddr)
	envString("REDIS_PASSWORD", &c.RedisPassword)
	intVar("REDIS_DB", &c.RedisDB)
	envString("REDIS_KEY_PREFIX", &c.RedisKeyPrefix)

	boolVar("ENABLE_METRICS", &c.EnableMetrics)
	envString("PUSHGATEWAY_URL", &c.PushgatewayURL)
	boolVar("ENABLE_TRACING", &c.EnableTracing)
	envString("OTLP_ENDPOINT", &c.OTLPEndpoint)
	envString("SERVICE_NAME", &c.ServiceName)

	return errors.Join(errs...)
}

var validate = validator.New()

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ExpectedLegislators is the upper bound on members a run can ingest.
func (c *Config) ExpectedLegislators() int {
	return c.MPLoops * c.MPTakePerLoop
}

func envString(key string, dst *string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func envList(key string, dst *[]string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func envInt(key string, dst *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, value)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: %q is not a number", key, value)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		return fmt.Errorf("%s: %q is not a boolean", key, value)
	}
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
