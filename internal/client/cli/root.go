package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/classmint/internal/buildinfo"
	"github.com/dmitrijs2005/classmint/internal/client/config"
)

type rootFlags struct {
	configFile string
	addr       string
	secret     string
	issuer     string
	timeout    time.Duration
	tokenTTL   time.Duration
}

// apply overrides loaded values with flags the user set explicitly.
func (f *rootFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	pf := cmd.Flags()
	if pf.Changed("addr") {
		cfg.ServerEndpointAddr = f.addr
	}
	if pf.Changed("secret") {
		cfg.SecretKey = f.secret
	}
	if pf.Changed("issuer") {
		cfg.IssuerID = f.issuer
	}
	if pf.Changed("timeout") {
		cfg.RequestTimeout = f.timeout
	}
	if pf.Changed("token-ttl") {
		cfg.AdminTokenValidityDuration = f.tokenTTL
	}
}

// NewRootCommand builds the classmint command tree bound to a.
func NewRootCommand(a *App) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "classmint",
		Short:         "Issue and redeem classroom reward tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags.configFile)
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			a.config = cfg
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "path to JSON config file")
	pf.StringVarP(&flags.addr, "addr", "a", "", "server address (host:port)")
	pf.StringVar(&flags.secret, "secret", "", "shared secret for admin commands (prompted when empty)")
	pf.StringVar(&flags.issuer, "issuer", "", "issuer id recorded on issued tokens")
	pf.DurationVar(&flags.timeout, "timeout", 0, "per-request timeout")
	pf.DurationVar(&flags.tokenTTL, "token-ttl", 0, "lifetime of minted admin tokens")

	root.AddCommand(
		issueCommand(a),
		redeemCommand(a),
		voidCommand(a),
		verifyCommand(a),
		statusCommand(a),
		statsCommand(a),
		tokensCommand(a),
		exportCommand(a),
		adminTokenCommand(a),
		pingCommand(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				buildinfo.PrintBuildData(a.out)
			},
		},
	)
	return root
}
