package config

import (
	"encoding/json"
	"os"

	"github.com/m00n5h075/serenya-sub003/internal/flagx"
	"github.com/m00n5h075/serenya-sub003/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files; its fields are copied into the runtime Config.
type JsonConfig struct {
	DatabaseDSN                 string         `json:"database_dsn"`
	AWSRegion                   string         `json:"aws_region"`
	AWSAccessKey                string         `json:"aws_access_key"`
	AWSSecretKey                string         `json:"aws_secret_key"`
	AWSBaseEndpoint             string         `json:"aws_base_endpoint"`
	S3Bucket                    string         `json:"s3_bucket"`
	KMSMasterKeyID              string         `json:"kms_master_key_id"`
	SecretsName                 string         `json:"secrets_name"`
	BedrockModelID              string         `json:"bedrock_model_id"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	WorkerPollInterval          timex.Duration `json:"worker_poll_interval"`
	WorkerBatchSize             int            `json:"worker_batch_size"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path is taken from the -c or -config flags; when
// neither is set, no JSON file is loaded. An unreadable or invalid file
// panics: a half-applied configuration is worse than a refused start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.AWSRegion = c.AWSRegion
	config.AWSAccessKey = c.AWSAccessKey
	config.AWSSecretKey = c.AWSSecretKey
	config.AWSBaseEndpoint = c.AWSBaseEndpoint
	config.S3Bucket = c.S3Bucket
	config.KMSMasterKeyID = c.KMSMasterKeyID
	config.SecretsName = c.SecretsName
	config.BedrockModelID = c.BedrockModelID
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.WorkerPollInterval = c.WorkerPollInterval.Duration
	config.WorkerBatchSize = c.WorkerBatchSize
}
