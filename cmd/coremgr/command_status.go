package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var statusServices = []string{"", ServiceSession, ServiceLoading}

func newStatusCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the health server of a running coremgr",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			conn, err := dial(address)
			if err != nil {
				return err
			}
			defer conn.Close()

			rows, err := queryStatuses(ctx, healthpb.NewHealthClient(conn))
			if err != nil {
				return err
			}
			printStatusTable(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Health server address (default $COREMGR_ADDRESS or "+defaultAddress+")")
	return cmd
}

type statusRow struct {
	Service string
	Status  healthpb.HealthCheckResponse_ServingStatus
}

func queryStatuses(ctx context.Context, client healthpb.HealthClient) ([]statusRow, error) {
	rows := make([]statusRow, 0, len(statusServices))
	for _, svc := range statusServices {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		if err != nil {
			return nil, err
		}
		rows = append(rows, statusRow{Service: svc, Status: resp.GetStatus()})
	}
	return rows, nil
}
