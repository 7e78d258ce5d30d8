package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSignCmd(v *viper.Viper) *cobra.Command {
	var (
		req           requestFlags
		headersToSign []string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a request and print its headers",
		Example: `  escher sign --credential-scope eu/suite/ems_request --key-id suite_key --secret s3cr3t \
    -X POST -u https://api.example.com/items -H "Content-Type: application/json" -d '{}' \
    --sign-header content-type`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := escherConfig(v)
			if err != nil {
				return err
			}
			creds, err := signingCredentials(v)
			if err != nil {
				return err
			}
			r, err := req.request()
			if err != nil {
				return err
			}

			if err := config.SignRequest(r, creds, headersToSign); err != nil {
				return fmt.Errorf("failed to sign request: %w", err)
			}
			log.Debugf("Signed %s %s", r.Method(), r.Path())

			out := cmd.OutOrStdout()
			for _, h := range r.Headers() {
				fmt.Fprintf(out, "%s: %s\n", h.Name, h.Value)
			}
			return nil
		},
	}

	req.register(cmd.Flags())
	cmd.Flags().StringSliceVar(&headersToSign, "sign-header", nil, "Additional header to sign, repeatable")
	return cmd
}

func newPresignCmd(v *viper.Viper) *cobra.Command {
	var (
		rawURL  string
		expires time.Duration
	)

	cmd := &cobra.Command{
		Use:   "presign",
		Short: "Print a presigned URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rawURL == "" {
				return fmt.Errorf("--url is required")
			}
			config, err := escherConfig(v)
			if err != nil {
				return err
			}
			creds, err := signingCredentials(v)
			if err != nil {
				return err
			}

			signed, err := config.GenerateSignedURL(rawURL, creds, expires)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&rawURL, "url", "u", "", "Absolute URL to presign")
	cmd.Flags().DurationVar(&expires, "expires", 24*time.Hour, "Validity of the URL")
	return cmd
}
