package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/forestrie/go-escher/escher"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logrus.New()

// Execute runs the escher command line. It is called by main.main().
func Execute() {
	if err := NewRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd creates the escher command with all sub-commands writing to
// out.
func NewRootCmd(out io.Writer) *cobra.Command {
	v := viper.New()
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "escher",
		Short:         "Escher request signing",
		Long:          `Sign requests, generate presigned URLs and verify signed requests with the Escher HMAC scheme`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file")
	flags.BoolP("debug", "D", false, "Enable debug messages")
	flags.String("algo-prefix", escher.DefaultAlgoPrefix, "Algorithm prefix")
	flags.String("vendor-key", escher.DefaultVendorKey, "Vendor key of presigned URL parameters")
	flags.String("hash-algo", string(escher.SHA256), "Hash algorithm, SHA256 or SHA512")
	flags.String("auth-header", escher.DefaultAuthHeaderName, "Auth header name")
	flags.String("date-header", escher.DefaultDateHeaderName, "Date header name")
	flags.Duration("clock-skew", escher.DefaultClockSkew*time.Second, "Accepted clock skew")
	flags.String("credential-scope", "", "Credential scope, e.g. eu/suite/ems_request")
	flags.String("key-id", "", "Key id used for signing")
	flags.String("secret", "", "Secret used for signing")
	flags.String("time", "", "Signing or verification time (default now)")
	v.BindPFlags(flags)

	rootCmd.SetOut(out)
	rootCmd.AddCommand(
		newSignCmd(v),
		newPresignCmd(v),
		newVerifyCmd(v),
	)
	return rootCmd
}

// initConfig reads the config file, if any, and ESCHER_ environment
// variables.
func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debugf("Using config file: %s", v.ConfigFileUsed())
	}

	v.SetEnvPrefix("escher")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if v.GetBool("debug") {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return nil
}

// escherConfig builds the engine config from flags, environment and the
// config file.
func escherConfig(v *viper.Viper) (escher.Config, error) {
	now := time.Now().UTC()
	if raw := v.GetString("time"); raw != "" {
		t, err := escher.ParseDate(raw)
		if err != nil {
			return escher.Config{}, fmt.Errorf("invalid time %q: %w", raw, err)
		}
		now = t
	}

	config := escher.Config{
		AlgoPrefix:      v.GetString("algo-prefix"),
		VendorKey:       v.GetString("vendor-key"),
		HashAlgo:        escher.HashAlgo(strings.ToUpper(v.GetString("hash-algo"))),
		AuthHeaderName:  v.GetString("auth-header"),
		DateHeaderName:  v.GetString("date-header"),
		ClockSkew:       v.GetDuration("clock-skew"),
		CredentialScope: v.GetString("credential-scope"),
		CurrentTime:     now,
	}.WithDefaults()
	if err := config.Validate(); err != nil {
		return escher.Config{}, err
	}

	log.WithFields(logrus.Fields{
		"algo":  config.AlgoID(),
		"scope": config.CredentialScope,
		"time":  config.CurrentTime.Format(time.RFC3339),
	}).Debug("Escher config")
	return config, nil
}

func signingCredentials(v *viper.Viper) (escher.Credentials, error) {
	keyID, secret := v.GetString("key-id"), v.GetString("secret")
	if keyID == "" || secret == "" {
		return escher.Credentials{}, fmt.Errorf("both --key-id and --secret are required")
	}
	return escher.Credentials{KeyID: keyID, Secret: []byte(secret)}, nil
}
