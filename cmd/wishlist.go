package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Alturino/marketclub/state"
)

func newWishlistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Read and change the wishlist of the logged in user",
	}

	withStores := func(
		run func(c context.Context, cl *client, wishlist *state.WishlistStore, args []string) error,
	) func(c context.Context, cl *client, args []string) error {
		return func(c context.Context, cl *client, args []string) error {
			wishlist, err := cl.wishlistStore(c, nil)
			defer wishlist.Teardown()
			if err != nil {
				return err
			}
			return run(c, cl, wishlist, args)
		}
	}

	var quantity int32
	move := clientCommand(
		"move <product-id>",
		"Move a favorite into the cart",
		cobra.ExactArgs(1),
		func(c context.Context, cl *client, args []string) error {
			cart, err := cl.cartStore(c, cl.cart)
			defer cart.Teardown()
			if err != nil {
				return err
			}
			wishlist, err := cl.wishlistStore(c, cart)
			defer wishlist.Teardown()
			if err != nil {
				return err
			}
			if err := wishlist.MoveToCart(c, args[0], quantity); err != nil {
				return err
			}
			return cl.print(map[string]any{"wishlist": wishlist.Snapshot(), "cart": cart.Snapshot()})
		},
	)
	move.Flags().Int32VarP(&quantity, "quantity", "q", 1, "units to put in the cart")

	cmd.AddCommand(
		clientCommand(
			"get",
			"Print the wishlist",
			cobra.NoArgs,
			withStores(func(_ context.Context, cl *client, wishlist *state.WishlistStore, _ []string) error {
				return cl.print(wishlist.Snapshot())
			}),
		),
		clientCommand(
			"toggle <product-id>",
			"Add a product to the favorites or take it out",
			cobra.ExactArgs(1),
			withStores(func(c context.Context, cl *client, wishlist *state.WishlistStore, args []string) error {
				result, err := wishlist.Toggle(c, args[0])
				if err != nil {
					return err
				}
				return cl.print(result)
			}),
		),
		clientCommand(
			"check <product-id>",
			"Tell whether a product is a favorite",
			cobra.ExactArgs(1),
			func(c context.Context, cl *client, args []string) error {
				check, err := cl.wishlist.Check(c, cl.creds, args[0])
				if err != nil {
					return err
				}
				return cl.print(check)
			},
		),
		clientCommand(
			"clear",
			"Remove every favorite",
			cobra.NoArgs,
			withStores(func(c context.Context, cl *client, wishlist *state.WishlistStore, _ []string) error {
				if err := wishlist.Clear(c); err != nil {
					return err
				}
				return cl.print(wishlist.Snapshot())
			}),
		),
		move,
	)
	return cmd
}
