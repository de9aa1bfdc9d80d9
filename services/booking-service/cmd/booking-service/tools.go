package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/slotdesk/libs/config"
	"github.com/md-rashed-zaman/slotdesk/libs/grpcx"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/accounts"
)

// healthcheckCmd probes the gRPC health service; container health checks use it.
func healthcheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Exit non-zero unless the running service reports SERVING",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = "127.0.0.1:" + config.String("GRPC_PORT", "9083")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{Timeout: 2 * time.Second})
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
			if err != nil {
				return err
			}
			if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("status %s", resp.GetStatus())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "SERVING")
			return nil
		},
	}
	cmd.Flags().String("addr", "", "host:port of the gRPC server (default 127.0.0.1:$GRPC_PORT)")
	return cmd
}

// hashPasswordCmd prints a bcrypt hash for ADMIN_PASSWORD_HASH.
func hashPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash suitable for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cost, _ := cmd.Flags().GetInt("cost")
			password := strings.TrimRight(args[0], "\r\n")
			hash, err := accounts.NewBcryptVerifier(cost).Hash(password)
			if errors.Is(err, accounts.ErrWeakPassword) {
				return fmt.Errorf("password must be at least %d characters", accounts.MinPasswordLen)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().Int("cost", 0, "bcrypt cost (0 uses the default)")
	return cmd
}
