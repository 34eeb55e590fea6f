package main

import (
	"errors"
	"time"

	"github.com/LerianStudio/lib-payscore/payscore/payafter"
	"github.com/LerianStudio/lib-payscore/payscore/signature"
	"github.com/spf13/cobra"
)

type certificateOutput struct {
	SerialNo  string    `json:"serial_no"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
}

type orderOutput struct {
	*payafter.Order
	TotalAmountYuan string `json:"total_amount_yuan"`
	RiskAmountYuan  string `json:"risk_amount_yuan"`
}

func newOrderOutput(order *payafter.Order) orderOutput {
	return orderOutput{
		Order:           order,
		TotalAmountYuan: order.TotalAmountYuan(),
		RiskAmountYuan:  order.RiskAmountYuan(),
	}
}

func newCertificatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "certificates",
		Short: "Download, verify and list the platform certificates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			g, err := newGateway(ctx)
			if err != nil {
				return err
			}
			defer g.close(ctx)

			if g.certs == nil {
				return errors.New("PAYSCORE_APIV3_KEY is required to decrypt certificates")
			}

			if err := g.certs.Refresh(ctx); err != nil {
				return err
			}

			out := make([]certificateOutput, 0)
			for _, cert := range g.certs.Certificates() {
				out = append(out, certificateOutput{
					SerialNo:  signature.SerialNumber(cert),
					NotBefore: cert.NotBefore,
					NotAfter:  cert.NotAfter,
				})
			}

			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newOrderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Inspect pay-after orders",
	}

	var outOrderNo, queryID string

	query := &cobra.Command{
		Use:   "query",
		Short: "Query an order by merchant order number or query id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			g, err := newGateway(ctx)
			if err != nil {
				return err
			}
			defer g.close(ctx)

			svc, err := payafter.New(g.client, g.cfg.AppID, g.cfg.ServiceID, payafter.WithLogger(g.logger))
			if err != nil {
				return err
			}

			order, err := svc.Query(ctx, outOrderNo, queryID)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), newOrderOutput(order))
		},
	}

	query.Flags().StringVar(&outOrderNo, "out-order-no", "", "merchant order number")
	query.Flags().StringVar(&queryID, "query-id", "", "query id returned to the merchant front end")
	query.MarkFlagsMutuallyExclusive("out-order-no", "query-id")
	query.MarkFlagsOneRequired("out-order-no", "query-id")

	var openid string

	state := &cobra.Command{
		Use:   "user-state",
		Short: "Check whether a user may use the service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			g, err := newGateway(ctx)
			if err != nil {
				return err
			}
			defer g.close(ctx)

			svc, err := payafter.New(g.client, g.cfg.AppID, g.cfg.ServiceID, payafter.WithLogger(g.logger))
			if err != nil {
				return err
			}

			st, err := svc.UserServiceState(ctx, openid)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), st)
		},
	}

	state.Flags().StringVar(&openid, "openid", "", "user openid")
	_ = state.MarkFlagRequired("openid")

	cmd.AddCommand(query, state)

	return cmd
}
