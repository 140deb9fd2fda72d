package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelsync/internal/edgeauth"
)

func newTokenCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		windowSeconds int
		persist       bool
		verifyToken   string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or verify a feed access credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			window := cfg.Catalog.TokenWindowSeconds
			if windowSeconds > 0 {
				window = windowSeconds
			}
			issuer, err := edgeauth.NewIssuer(
				cfg.Catalog.SigningSecret,
				cfg.Catalog.TokenACL,
				time.Duration(window)*time.Second,
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if verifyToken != "" {
				cred, err := issuer.Verify(verifyToken)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Signature valid, window %s to %s\n",
					cred.IssuedAt.Format(time.RFC3339), cred.ExpiresAt.Format(time.RFC3339))
				if !cred.ValidAt(time.Now()) {
					fmt.Fprintln(out, "Warning: credential is outside its validity window")
				}
				return nil
			}

			cred := issuer.Issue()
			fmt.Fprintln(out, cred.Token)
			fmt.Fprintf(cmd.ErrOrStderr(), "Expires %s\n", cred.ExpiresAt.Format(time.RFC3339))

			if persist {
				st, err := cmdCtx.openStore()
				if err != nil {
					return err
				}
				defer st.Close()
				if _, err := st.SaveCredential(cmd.Context(), cred.Token, cred.IssuedAt, cred.ExpiresAt); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Saved as the active credential")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&windowSeconds, "window", 0, "Validity window in seconds (default from config)")
	cmd.Flags().BoolVar(&persist, "save", false, "Store the credential for the next sync run")
	cmd.Flags().StringVar(&verifyToken, "verify", "", "Verify an existing token instead of issuing one")
	return cmd
}
