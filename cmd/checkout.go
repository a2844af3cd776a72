package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Alturino/marketclub/checkout/pkg/request"
	"github.com/Alturino/marketclub/checkout/pkg/response"
)

func customerFlags(cmd *cobra.Command, customer *request.Customer) {
	cmd.Flags().StringVar(&customer.FullName, "name", "", "customer full name")
	cmd.Flags().StringVar(&customer.Email, "email", "", "customer email")
	cmd.Flags().StringVar(&customer.PhoneNumber, "phone", "", "customer phone number")
	cmd.Flags().StringVar(&customer.LegalID, "legal-id", "", "customer legal id")
	cmd.Flags().StringVar(&customer.LegalIDType, "legal-id-type", "", "CC, CE, NIT, PP, TI or DNI")
}

func newCheckoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Turn the cart into an order and follow the payment",
	}

	order := request.CreateOrder{}
	address := request.ShippingAddress{}
	orderCmd := clientCommand(
		"order",
		"Create an order from the cart and print the payment session",
		cobra.NoArgs,
		func(c context.Context, cl *client, _ []string) error {
			if address.AddressLine1 != "" || address.City != "" {
				order.ShippingAddress = &address
			}
			session, err := cl.checkout.CreateOrder(c, cl.creds, order)
			if err != nil {
				return err
			}
			fmt.Fprintf(cl.toasts, "* pay at %s\n", session.CheckoutURL)
			return cl.print(session)
		},
	)
	customerFlags(orderCmd, &order.Customer)
	orderCmd.Flags().StringVar(&address.AddressLine1, "address", "", "shipping address line")
	orderCmd.Flags().StringVar(&address.AddressLine2, "address-extra", "", "shipping address details")
	orderCmd.Flags().StringVar(&address.City, "city", "", "shipping city")
	orderCmd.Flags().StringVar(&address.Region, "region", "", "shipping region")
	orderCmd.Flags().StringVar(&address.Country, "country", "CO", "shipping country")

	subscription := request.CreateSubscription{}
	subscribeCmd := clientCommand(
		"subscribe <plan-id>",
		"Start a subscription to a plan and print the payment session",
		cobra.ExactArgs(1),
		func(c context.Context, cl *client, args []string) error {
			subscription.PlanID = args[0]
			session, err := cl.checkout.CreateSubscription(c, cl.creds, subscription)
			if err != nil {
				return err
			}
			fmt.Fprintf(cl.toasts, "* pay at %s\n", session.CheckoutURL)
			return cl.print(session)
		},
	)
	customerFlags(subscribeCmd, &subscription.Customer)

	success := request.Success{}
	successCmd := clientCommand(
		"success",
		"Resolve the page the payment widget redirected to",
		cobra.NoArgs,
		func(c context.Context, cl *client, _ []string) error {
			completion, err := cl.checkout.HandleSuccess(c, cl.creds, success)
			if err != nil {
				return err
			}
			switch completion.State {
			case response.STATE_APPROVED:
				fmt.Fprintln(cl.toasts, "* payment approved")
			case response.STATE_PENDING:
				fmt.Fprintln(cl.toasts, "* payment pending")
			default:
				if completion.Failure != nil {
					fmt.Fprintf(cl.toasts, "! %s\n", completion.Failure.Message)
				}
			}
			return cl.print(completion)
		},
	)
	successCmd.Flags().StringVar(&success.OrderID, "order-id", "", "order id")
	successCmd.Flags().StringVar(&success.TransactionID, "transaction-id", "", "payment provider transaction id")
	successCmd.Flags().StringVar(&success.Reference, "reference", "", "order reference")

	failure := request.Failure{}
	failedCmd := clientCommand(
		"failed",
		"Resolve the page shown when the payment did not go through",
		cobra.NoArgs,
		func(c context.Context, cl *client, _ []string) error {
			result := cl.checkout.HandleFailure(c, failure)
			fmt.Fprintf(cl.toasts, "! %s\n", result.Message)
			return cl.print(result)
		},
	)
	failedCmd.Flags().StringVar(&failure.Reason, "reason", "", "declined, cancelled or timeout")
	failedCmd.Flags().StringVar(&failure.Reference, "reference", "", "order reference")

	cmd.AddCommand(orderCmd, subscribeCmd, successCmd, failedCmd)
	return cmd
}
