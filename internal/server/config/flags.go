package config

import (
	"flag"
	"os"
	"time"

	"github.com/m00n5h075/serenya-sub003/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-g string   AWS region
//	-u string   AWS access key (local stacks)
//	-p string   AWS secret key (local stacks)
//	-e string   S3-compatible base endpoint (e.g., "http://127.0.0.1:9000/")
//	-b string   S3 bucket name
//	-k string   KMS master key id or alias
//	-n string   Secrets Manager secret name
//	-m string   Bedrock model id
//	-t int      access token validity, minutes
//	-i int      worker poll interval, seconds
//	-w int      worker batch size
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-g", "-u", "-p", "-e", "-b", "-k", "-n", "-m", "-t", "-i", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")
	fs.StringVar(&config.AWSAccessKey, "u", config.AWSAccessKey, "AWS access key")
	fs.StringVar(&config.AWSSecretKey, "p", config.AWSSecretKey, "AWS secret key")
	fs.StringVar(&config.AWSBaseEndpoint, "e", config.AWSBaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.KMSMasterKeyID, "k", config.KMSMasterKeyID, "KMS master key id")
	fs.StringVar(&config.SecretsName, "n", config.SecretsName, "secrets manager secret name")
	fs.StringVar(&config.BedrockModelID, "m", config.BedrockModelID, "Bedrock model id")

	tokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	pollInterval := fs.Int("i", int(config.WorkerPollInterval.Seconds()), "worker poll interval (in seconds)")
	fs.IntVar(&config.WorkerBatchSize, "w", config.WorkerBatchSize, "worker batch size")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	config.WorkerPollInterval = time.Duration(*pollInterval) * time.Second
}
