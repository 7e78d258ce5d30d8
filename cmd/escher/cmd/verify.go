package cmd

import (
	"errors"
	"fmt"

	"github.com/forestrie/go-escher/escher"
	"github.com/forestrie/go-escher/keydb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type keyDBFlags struct {
	files       []string
	dirs        []string
	redisAddr   string
	redisPrefix string
}

// keys assembles the configured key databases. --key-id and --secret add
// a single key. The returned func releases background resources.
func (f *keyDBFlags) keys(v *viper.Viper) (escher.KeyDB, func(), error) {
	var (
		chain   keydb.Chain
		closers []func()
	)
	release := func() {
		for _, c := range closers {
			c()
		}
	}

	if keyID, secret := v.GetString("key-id"), v.GetString("secret"); keyID != "" && secret != "" {
		chain = append(chain, keydb.Static{keyID: secret})
	}

	for _, path := range f.files {
		keys, err := keydb.LoadFile(path)
		if err != nil {
			release()
			return nil, nil, err
		}
		log.Debugf("Loaded %d keys from %s", len(keys), path)
		chain = append(chain, keys)
	}

	if len(f.dirs) > 0 {
		sp := keydb.NewSecretPaths(0)
		closers = append(closers, sp.Close)
		for _, dir := range f.dirs {
			if err := sp.Add(dir); err != nil {
				release()
				return nil, nil, fmt.Errorf("failed to add key directory %s: %w", dir, err)
			}
		}
		chain = append(chain, sp)
	}

	if f.redisAddr != "" {
		client := keydb.NewRedisClient(f.redisAddr, "")
		closers = append(closers, func() { client.Close() })
		chain = append(chain, keydb.NewRedis(client, keydb.RedisOptions{Prefix: f.redisPrefix}))
	}

	if len(chain) == 0 {
		release()
		return nil, nil, fmt.Errorf("no key database configured")
	}
	return chain, release, nil
}

func newVerifyCmd(v *viper.Viper) *cobra.Command {
	var (
		req       requestFlags
		keyFlags  keyDBFlags
		mandatory []string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signed request and print the key id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := escherConfig(v)
			if err != nil {
				return err
			}
			r, err := req.request()
			if err != nil {
				return err
			}
			keys, release, err := keyFlags.keys(v)
			if err != nil {
				return err
			}
			defer release()

			keyID, err := config.Authenticate(r, keys, mandatory)
			if err != nil {
				log.WithField("reason", reasonOf(err)).Debug("Request rejected")
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), keyID)
			return nil
		},
	}

	req.register(cmd.Flags())
	flags := cmd.Flags()
	flags.StringSliceVar(&keyFlags.files, "keydb", nil, "YAML key database file, repeatable")
	flags.StringSliceVar(&keyFlags.dirs, "keydir", nil, "Directory with one file per key, repeatable")
	flags.StringVar(&keyFlags.redisAddr, "redis-addr", "", "Redis server holding the keys")
	flags.StringVar(&keyFlags.redisPrefix, "redis-prefix", keydb.DefaultRedisPrefix, "Prefix of redis keys")
	flags.StringSliceVar(&mandatory, "mandatory-header", nil, "Header that must be signed, repeatable")
	return cmd
}

func reasonOf(err error) string {
	var escherErr *escher.Error
	if errors.As(err, &escherErr) {
		return escherErr.Code.String()
	}
	return "internal"
}
