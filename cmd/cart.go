package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cartSvc "github.com/Alturino/marketclub/cart/service"
	"github.com/Alturino/marketclub/state"
)

func newCartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Read and change the retail cart of this session",
	}
	cmd.AddCommand(cartCommands(func(cl *client) *cartSvc.CartService { return cl.cart })...)
	return cmd
}

// cartCommands builds get, add, update, remove, clear and notes over the cart svc picks.
func cartCommands(svc func(cl *client) *cartSvc.CartService) []*cobra.Command {
	withStore := func(
		run func(c context.Context, store *state.CartStore, args []string) error,
	) func(c context.Context, cl *client, args []string) error {
		return func(c context.Context, cl *client, args []string) error {
			store, err := cl.cartStore(c, svc(cl))
			defer store.Teardown()
			if err != nil {
				return err
			}
			if err := run(c, store, args); err != nil {
				return err
			}
			return cl.print(store.Snapshot())
		}
	}

	var quantity int32
	add := clientCommand(
		"add <product-id>",
		"Add a product, quantities of a product already in the cart are summed",
		cobra.ExactArgs(1),
		withStore(func(c context.Context, store *state.CartStore, args []string) error {
			return store.Add(c, args[0], quantity)
		}),
	)
	add.Flags().Int32VarP(&quantity, "quantity", "q", 1, "units to add")

	return []*cobra.Command{
		clientCommand(
			"get",
			"Print the cart",
			cobra.NoArgs,
			withStore(func(context.Context, *state.CartStore, []string) error { return nil }),
		),
		add,
		clientCommand(
			"update <product-id> <quantity>",
			"Set the quantity of a line, 0 removes it",
			cobra.ExactArgs(2),
			withStore(func(c context.Context, store *state.CartStore, args []string) error {
				quantity, err := parseQuantity(args[1])
				if err != nil {
					return err
				}
				return store.UpdateQuantity(c, args[0], quantity)
			}),
		),
		clientCommand(
			"remove <product-id>",
			"Remove a line",
			cobra.ExactArgs(1),
			withStore(func(c context.Context, store *state.CartStore, args []string) error {
				return store.Remove(c, args[0])
			}),
		),
		clientCommand(
			"clear",
			"Remove every line",
			cobra.NoArgs,
			withStore(func(c context.Context, store *state.CartStore, _ []string) error {
				return store.Clear(c)
			}),
		),
		clientCommand(
			"notes <text>",
			"Attach notes to the cart",
			cobra.MinimumNArgs(1),
			withStore(func(c context.Context, store *state.CartStore, args []string) error {
				return store.AddNotes(c, strings.Join(args, " "))
			}),
		),
	}
}

func parseQuantity(raw string) (int32, error) {
	quantity, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed parsing quantity=%s with error=%w", raw, err)
	}
	return int32(quantity), nil
}
