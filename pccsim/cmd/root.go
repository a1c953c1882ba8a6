// Package cmd provides the command-line interface of pccsim.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// envPrefix is prepended to the upper-cased flag names to find the
// environment variables that provide flag defaults.
const envPrefix = "PCC_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pccsim",
	Short: "pccsim drives a PCC controller on a simulated command queue.",
	Long: `pccsim drives a PCC controller on a simulated command queue. ` +
		`Flags that are not given on the command line are read from PCC_* ` +
		`environment variables, which may be set in a .env file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// envName returns the environment variable that backs a flag.
func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// applyEnv loads .env files and fills the flags that were not set on the
// command line from the environment.
func applyEnv(flags *pflag.FlagSet, files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	var setErr error

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || setErr != nil {
			return
		}

		v, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		if err := flags.Set(f.Name, v); err != nil {
			setErr = fmt.Errorf("%s: %w", envName(f.Name), err)
		}
	})

	return setErr
}
