package main

import (
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"beanchain/cmd/internal/secret"
	"beanchain/crypto"
)

func newKeygenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an account key and write it to an encrypted keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(out) == "" {
				return fmt.Errorf("--out is required")
			}
			pass, err := secret.NewSource(keystorePassEnv, "keystore passphrase").Get()
			if err != nil {
				return err
			}
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return err
			}
			if err := crypto.SaveKeyFile(out, key, pass); err != nil {
				return fmt.Errorf("write keystore: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "address  %s\nkeystore %s\n", key.PubKey().Address(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "keystore output path")
	return cmd
}

func newAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address <keystore>",
		Short: "Print the account address held in a keystore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := secret.NewSource(keystorePassEnv, "keystore passphrase").Get()
			if err != nil {
				return err
			}
			key, err := crypto.LoadKeyFile(args[0], pass)
			if err != nil {
				return fmt.Errorf("open keystore: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.PubKey().Address())
			return nil
		},
	}
}

type tokenOptions struct {
	subject  string
	scopes   []string
	issuer   string
	audience string
	ttl      time.Duration
}

func newTokenCmd(a *app) *cobra.Command {
	var opts tokenOptions
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an HS256 bearer token for beand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := secret.NewSource(jwtSecretEnv, "JWT signing secret").Get()
			if err != nil {
				return err
			}
			signed, err := mintToken([]byte(key), opts, a.now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.subject, "sub", "", "account address bound to the token")
	cmd.Flags().StringSliceVar(&opts.scopes, "scope", []string{"silo:write"}, "granted scopes")
	cmd.Flags().StringVar(&opts.issuer, "issuer", "", "iss claim")
	cmd.Flags().StringVar(&opts.audience, "audience", "", "aud claim")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func mintToken(key []byte, opts tokenOptions, now time.Time) (string, error) {
	if opts.ttl <= 0 {
		return "", fmt.Errorf("--ttl must be positive")
	}
	if len(opts.scopes) == 0 {
		return "", fmt.Errorf("at least one --scope is required")
	}
	claims := jwt.MapClaims{
		"scope": strings.Join(opts.scopes, " "),
		"iat":   now.Unix(),
		"exp":   now.Add(opts.ttl).Unix(),
	}
	if opts.subject != "" {
		addr, err := crypto.DecodeAddress(opts.subject)
		if err != nil {
			return "", fmt.Errorf("--sub: %w", err)
		}
		claims["sub"] = addr.String()
	}
	if opts.issuer != "" {
		claims["iss"] = opts.issuer
	}
	if opts.audience != "" {
		claims["aud"] = opts.audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
