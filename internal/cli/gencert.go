package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytbs/bettersearch/internal/certgen"
)

func newGencertCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gencert",
		Short: "Generate a self-signed certificate and RSA key",
		Long: `Generate a self-signed certificate for localhost and a fresh 2048-bit RSA key,
valid for 3650 days. Existing files are overwritten.

Every certificate carries serial number 1000, so certificates produced by this
command cannot be distinguished by serial.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgFile, map[string]string{
				"tls.cert_file": "cert",
				"tls.key_file":  "key",
			})
			if err != nil {
				return err
			}

			if err := certgen.GenerateSelfSigned(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Certificate generated: %s\n", cfg.TLS.CertFile)
			fmt.Fprintf(out, "Key file generated: %s\n", cfg.TLS.KeyFile)
			return nil
		},
	}

	cmd.Flags().String("cert", certgen.DefaultCertFile, "certificate output path")
	cmd.Flags().String("key", certgen.DefaultKeyFile, "private key output path")
	return cmd
}
