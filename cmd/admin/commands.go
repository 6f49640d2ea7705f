package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kevin07696/cybersource-plugin/internal/bootstrap"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/pkg/timeutil"
)

// paymentInfoCmd runs the payment-info sweep, which reconciles UNDEFINED rows
func paymentInfoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "payment-info PAYMENT_ID",
		Short: "List a payment's results, reconciling UNDEFINED ones",
		Long: `Runs the same lookup the billing platform uses. Rows left UNDEFINED by a
timeout are checked against the On-Demand report and either settled or,
past the cancel threshold, canceled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := c.tenantID()
			if err != nil {
				return err
			}
			paymentID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("payment id must be a UUID: %w", err)
			}
			props, err := c.props()
			if err != nil {
				return err
			}

			return c.withDeps(cmd.Context(), func(deps *bootstrap.Dependencies, logger *zap.Logger) error {
				infos, err := deps.Payments.GetPaymentInfo(cmd.Context(), domain.CallContext{TenantID: tenantID}, paymentID, props)
				if err != nil {
					return err
				}
				if c.asJSON {
					return printJSON(cmd.OutOrStdout(), infos)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TRANSACTION\tTYPE\tSTATUS\tAMOUNT\tCURRENCY\tCREATED")
				for _, info := range infos {
					amount := "-"
					if info.Amount != nil {
						amount = info.Amount.String()
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						info.KBTransactionID, info.TransactionType, info.Status, amount, info.Currency,
						info.CreatedDate.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
}

// cancelResponseCmd cancels one UNDEFINED row by hand
func cancelResponseCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "cancel-response RESPONSE_ID",
		Short: "Mark an UNDEFINED response row as CANCELED",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := c.tenantID()
			if err != nil {
				return err
			}
			responseID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("response id must be a UUID: %w", err)
			}

			return c.withDeps(cmd.Context(), func(deps *bootstrap.Dependencies, logger *zap.Logger) error {
				var canceled *domain.GatewayResponse
				err := deps.DB.WithTransaction(cmd.Context(), func(ctx context.Context, tx pgx.Tx) error {
					response, err := deps.Ledger.Lock(ctx, tx, responseID)
					if err != nil {
						return err
					}
					if response.KBTenantID != tenantID {
						return domain.ErrResponseNotFound
					}
					if status := deps.Classifier.Status(response); status != domain.StatusUndefined && !force {
						return fmt.Errorf("response %s is %s, not UNDEFINED (use --force)", responseID, status)
					}
					canceled, err = deps.Ledger.Cancel(ctx, tx, responseID)
					return err
				})
				if err != nil {
					return err
				}

				logger.Info("Response canceled by operator",
					zap.String("response_id", responseID.String()),
					zap.String("kb_payment_id", canceled.KBPaymentID.String()),
				)
				if c.asJSON {
					return printJSON(cmd.OutOrStdout(), canceled)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "canceled %s: %s\n", responseID, deref(canceled.Message))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "cancel even if the row is not UNDEFINED")
	return cmd
}

// shouldCreditCmd answers whether a refund would be sent as a stand-alone credit
func shouldCreditCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "should-credit PAYMENT_ID",
		Short: "Tell whether a refund on the payment becomes a credit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := c.tenantID()
			if err != nil {
				return err
			}
			paymentID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("payment id must be a UUID: %w", err)
			}
			props, err := c.props()
			if err != nil {
				return err
			}
			opts, err := domain.ParseOptions(props)
			if err != nil {
				return err
			}

			return c.withDeps(cmd.Context(), func(deps *bootstrap.Dependencies, logger *zap.Logger) error {
				credit, err := deps.CreditPolicy.ShouldCredit(cmd.Context(), tenantID, paymentID, opts)
				if err != nil {
					return err
				}
				if c.asJSON {
					return printJSON(cmd.OutOrStdout(), map[string]bool{"should_credit": credit})
				}
				fmt.Fprintln(cmd.OutOrStdout(), credit)
				return nil
			})
		},
	}
}

// reportCmd fetches one On-Demand single transaction report
func reportCmd(c *cli) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "report MERCHANT_REFERENCE_CODE",
		Short: "Fetch the On-Demand report for a merchant reference code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := c.tenantID()
			if err != nil {
				return err
			}
			props, err := c.props()
			if err != nil {
				return err
			}
			opts, err := domain.ParseOptions(props)
			if err != nil {
				return err
			}

			day := timeutil.Now()
			if date != "" {
				day, err = time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}

			return c.withDeps(cmd.Context(), func(deps *bootstrap.Dependencies, logger *zap.Logger) error {
				api, err := deps.Reports.ForTenant(cmd.Context(), tenantID, opts)
				if err != nil {
					return err
				}
				if api == nil {
					return fmt.Errorf("tenant %s has no on_demand reporting account", tenantID)
				}

				outcome := api.FetchReport(cmd.Context(), args[0], day)
				if c.asJSON {
					return printJSON(cmd.OutOrStdout(), reportView(outcome))
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "outcome: %s\n", outcome.Kind)
				if outcome.Err != nil {
					fmt.Fprintf(out, "error:   %v\n", outcome.Err)
				}
				if outcome.Report != nil {
					r := outcome.Report
					fmt.Fprintf(out, "success: %t\n", r.Success)
					fmt.Fprintf(out, "request: %s\n", deref(r.Params.RequestID))
					fmt.Fprintf(out, "reason:  %s\n", deref(r.Params.ReasonCode))
					fmt.Fprintf(out, "amount:  %s %s\n", deref(r.Params.Amount), deref(r.Params.Currency))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "request date as YYYY-MM-DD (default: today, UTC)")
	return cmd
}

type reportOutput struct {
	Report  *domain.Report `json:"report,omitempty"`
	Outcome string         `json:"outcome"`
	Error   string         `json:"error,omitempty"`
}

func reportView(o domain.ReportOutcome) reportOutput {
	view := reportOutput{Outcome: o.Kind.String(), Report: o.Report}
	if o.Err != nil {
		view.Error = o.Err.Error()
	}
	return view
}
