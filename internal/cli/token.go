package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tpln/gateway/internal/streamchat"
)

func (a *app) newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Chat token utilities",
	}

	var (
		userID string
		mock   bool
		verify bool
		ttl    time.Duration
	)
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Mint a chat token locally for debugging",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}

			var (
				minter streamchat.Minter
				client *streamchat.Client
			)
			if mock || a.cfg.IsMockTokenMode() {
				if verify {
					return errors.New("--verify needs a signed token; mock tokens carry no signature")
				}
				minter = streamchat.NewMock(a.cfg.StreamAPIKey, time.Now)
			} else {
				if ttl == 0 {
					ttl = a.cfg.StreamTokenTTL
				}
				var opts []streamchat.Option
				if ttl > 0 {
					opts = append(opts, streamchat.WithTTL(ttl))
				}
				c, err := streamchat.New(a.cfg.StreamAPIKey, a.cfg.StreamAPISecret, opts...)
				if err != nil {
					return err
				}
				client = c
				minter = c
			}

			token, err := minter.Mint(cmd.Context(), userID)
			if err != nil {
				return err
			}
			a.logger.Debug("token minted", "user_id", userID, "variant", minter.Variant())
			fmt.Fprintln(cmd.OutOrStdout(), token)

			if verify {
				subject, err := client.VerifyToken(token)
				if err != nil {
					return fmt.Errorf("verify token: %w", err)
				}
				if subject != userID {
					return fmt.Errorf("verify token: issued for %q, want %q", subject, userID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "verified: signature ok, user %s\n", subject)
			}
			return nil
		},
	}
	mint.Flags().StringVar(&userID, "user", "", "User id the token is issued for")
	mint.Flags().BoolVar(&mock, "mock", false, "Produce a simulated token")
	mint.Flags().BoolVar(&verify, "verify", false, "Check the signature and subject of the minted token")
	mint.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default STREAM_TOKEN_TTL, 0 = no expiry)")

	cmd.AddCommand(mint)
	return cmd
}
