package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ytbs/bettersearch/internal/config"
	"github.com/ytbs/bettersearch/internal/server"
	"github.com/ytbs/bettersearch/internal/tracker"
)

func newServeCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API and the frontend bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgFile, map[string]string{
				"server.addr":       "addr",
				"server.static_dir": "static-dir",
				"tls.enabled":       "tls",
				"tls.cert_file":     "cert",
				"tls.key_file":      "key",
			})
			if err != nil {
				return err
			}

			var opts []server.Option
			if cfg.Tracker.Probe {
				if cfg.Tracker.Configured() {
					opts = append(opts, server.WithTrackerProbe(newTrackerClient(cfg.Tracker)))
				} else {
					slog.Warn("tracker.probe is set but tracker credentials are missing, skipping probe")
				}
			}

			srv, err := server.New(server.Config{
				Addr:       cfg.Server.Addr,
				StaticDir:  cfg.Server.StaticDir,
				TLSEnabled: cfg.TLS.Enabled,
				CertFile:   cfg.TLS.CertFile,
				KeyFile:    cfg.TLS.KeyFile,
			}, opts...)
			if err != nil {
				return err
			}
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "", "listen address (default 0.0.0.0:7860)")
	cmd.Flags().String("static-dir", "", "directory of the frontend bundle (default frontend)")
	cmd.Flags().Bool("tls", true, "terminate TLS with --cert and --key")
	cmd.Flags().String("cert", "", "PEM certificate file (default cert.pem)")
	cmd.Flags().String("key", "", "PEM private key file (default key.pem)")
	return cmd
}

func newTrackerClient(tc config.TrackerConfig) *tracker.Client {
	return tracker.NewClient(tc.Token, tc.OrgID,
		tracker.WithBaseURL(tc.BaseURL),
		tracker.WithTimeout(tc.Timeout),
		tracker.WithCacheTTL(tc.CacheTTL),
	)
}
