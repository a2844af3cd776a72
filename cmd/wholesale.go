package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cartSvc "github.com/Alturino/marketclub/cart/service"
	"github.com/Alturino/marketclub/wholesale/pkg/request"
)

func newWholesaleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wholesale",
		Short: "Read and change the wholesaler cart and request a quote over WhatsApp",
	}
	cmd.AddCommand(cartCommands(func(cl *client) *cartSvc.CartService { return cl.wholesale.Cart() })...)

	customer := request.Customer{}
	quote := clientCommand(
		"quote",
		"Compose the WhatsApp quote request for the wholesaler cart",
		cobra.NoArgs,
		func(c context.Context, cl *client, _ []string) error {
			q, err := cl.wholesale.ComposeQuote(c, cl.creds, customer)
			if err != nil {
				return err
			}
			fmt.Fprintln(cl.toasts, "* open the link to send the quote")
			return cl.print(q)
		},
	)
	quote.Flags().StringVar(&customer.Name, "name", "", "contact name")
	quote.Flags().StringVar(&customer.Company, "company", "", "company name")
	quote.Flags().StringVar(&customer.City, "city", "", "delivery city")
	quote.Flags().StringVar(&customer.Phone, "phone", "", "contact phone")
	cmd.AddCommand(quote)

	return cmd
}
