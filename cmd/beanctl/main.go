package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	defaultEndpoint = "http://127.0.0.1:8645"
	endpointEnv     = "BEAN_ENDPOINT"
	tokenEnv        = "BEAN_TOKEN"
	jwtSecretEnv    = "BEAN_JWT_SECRET"
	keystorePassEnv = "BEAN_KEYSTORE_PASSPHRASE"
)

type app struct {
	endpoint string
	token    string
	asJSON   bool
	now      func() time.Time
}

func (a *app) client() (*client, error) {
	return newClient(a.endpoint, a.token)
}

func newRootCmd() *cobra.Command {
	a := &app{now: time.Now}
	root := &cobra.Command{
		Use:           "beanctl",
		Short:         "Operate and inspect a beand ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.endpoint, "endpoint", envOr(endpointEnv, defaultEndpoint), "beand base URL")
	root.PersistentFlags().StringVar(&a.token, "auth", os.Getenv(tokenEnv), "bearer token for write and admin calls")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print raw JSON responses")

	root.AddCommand(
		newKeygenCmd(),
		newAddressCmd(),
		newTokenCmd(a),
		newSeasonCmd(a),
		newAccountCmd(a),
		newDepositsCmd(a),
		newDepositCmd(a),
		newWithdrawCmd(a),
		newSunriseCmd(a),
		newExportCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
