package config

import (
	"flag"
	"os"
	"time"

	"github.com/lingodocs/docstore/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-k string   backend kind ("drive", "s3" or "memory")
//	-f string   root folder name
//	-u string   remote store base URL
//	-t string   token endpoint URL
//	-e string   service account email
//	-s string   service signing secret
//	-r int      retry budget (additional attempts after the first)
//	-i int      initial retry delay, milliseconds
//	-x int      maximum retry delay, milliseconds
//	-w int      maximum in-flight remote calls
//	-m string   metrics bind address
//	-l string   log level
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Delay flags
// are accepted as integers in milliseconds and converted to time.Duration.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-k", "-f", "-u", "-t", "-e", "-s", "-r", "-i", "-x", "-w", "-m", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Backend, "k", config.Backend, "remote store backend kind")
	fs.StringVar(&config.RootFolderName, "f", config.RootFolderName, "root folder name")
	fs.StringVar(&config.StoreBaseURL, "u", config.StoreBaseURL, "remote store base URL")
	fs.StringVar(&config.TokenEndpoint, "t", config.TokenEndpoint, "token endpoint URL")
	fs.StringVar(&config.ServiceAccountEmail, "e", config.ServiceAccountEmail, "service account email")
	fs.StringVar(&config.ServiceSecret, "s", config.ServiceSecret, "service signing secret")

	fs.IntVar(&config.RetryMaxRetries, "r", config.RetryMaxRetries, "retry budget")
	initialDelay := fs.Int("i", int(config.RetryInitialDelay.Milliseconds()), "initial retry delay (in milliseconds)")
	maxDelay := fs.Int("x", int(config.RetryMaxDelay.Milliseconds()), "maximum retry delay (in milliseconds)")

	fs.IntVar(&config.MaxInFlight, "w", config.MaxInFlight, "maximum in-flight remote calls")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics bind address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RetryInitialDelay = time.Duration(*initialDelay) * time.Millisecond
	config.RetryMaxDelay = time.Duration(*maxDelay) * time.Millisecond
}
