// tokengen signs access or refresh tokens with the API's RSA key pair, for
// local testing of the HTTP routes and the /ws handshake.
package main

import (
	"fmt"
	"os"

	"github.com/garage-notify/internal/config"
	"github.com/garage-notify/internal/domain"
	jwtinfra "github.com/garage-notify/internal/infrastructure/jwt"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()
	cfg := config.Load()

	var (
		userID  int64
		role    string
		refresh bool
	)
	flagSet := pflag.NewFlagSet("tokengen", pflag.ContinueOnError)
	flagSet.Int64VarP(&userID, "user", "u", 0, "user id placed in the sub claim (required)")
	flagSet.StringVarP(&role, "role", "r", domain.RoleCustomer, "role claim: customer, garage_owner or admin")
	flagSet.BoolVar(&refresh, "refresh", false, "issue a refresh token instead of an access token")
	flagSet.StringVar(&cfg.JWTPrivateKeyPath, "private-key", cfg.JWTPrivateKeyPath, "PEM private key")
	flagSet.StringVar(&cfg.JWTPublicKeyPath, "public-key", cfg.JWTPublicKeyPath, "PEM public key")
	flagSet.DurationVar(&cfg.JWTExpiry, "ttl", cfg.JWTExpiry, "access token lifetime")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if userID <= 0 {
		return fmt.Errorf("--user must be a positive id")
	}
	switch role {
	case domain.RoleCustomer, domain.RoleGarageOwner, domain.RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	provider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return err
	}
	kind := jwtinfra.KindAccess
	if refresh {
		kind = jwtinfra.KindRefresh
	}
	signed, err := provider.Sign(userID, role, kind)
	if err != nil {
		return err
	}
	fmt.Println(signed)
	return nil
}
