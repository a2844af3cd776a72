package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
	cartSvc "github.com/Alturino/marketclub/cart/service"
	checkoutSvc "github.com/Alturino/marketclub/checkout/service"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/backend"
	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	"github.com/Alturino/marketclub/internal/log"
	"github.com/Alturino/marketclub/internal/session"
	productSvc "github.com/Alturino/marketclub/product/service"
	"github.com/Alturino/marketclub/state"
	wholesaleSvc "github.com/Alturino/marketclub/wholesale/service"
	wishlistSvc "github.com/Alturino/marketclub/wishlist/service"
)

// client is one terminal "tab": a session persisted on disk, the optional user token and the
// state containers rendered to stdout.
type client struct {
	cfg       *config.Config
	creds     auth.Credentials
	cart      *cartSvc.CartService
	wholesale *wholesaleSvc.WholesaleService
	wishlist  *wishlistSvc.WishlistService
	checkout  *checkoutSvc.CheckoutService
	out       io.Writer
	toasts    io.Writer
}

func newClient(cmd *cobra.Command) (context.Context, *client, error) {
	c := cmd.Context()
	cfg := config.Get(c, configName)

	logger := log.Get("", cfg.Application.Env).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_STOREFRONT_CLI).
		Str(constants.KEY_TAG, "cli "+cmd.CommandPath()).
		Logger()
	c = logger.WithContext(c)

	sessionID := session.NewProvider(session.NewFileStorage(cfg.Session.FilePath)).GetOrCreateSessionID(c)
	creds := auth.Credentials{Token: token, SessionID: sessionID}
	if err := creds.Validate(time.Now()); err != nil {
		return c, nil, err
	}
	c = session.AttachToContext(c, sessionID)
	logger.Debug().Str(constants.KEY_SESSION_ID, sessionID).Bool("guest", creds.IsGuest()).Msg("resolved credentials")

	pricing, err := cartRes.NewPricing(cfg.Pricing)
	if err != nil {
		return c, nil, fmt.Errorf("failed parsing pricing config with error=%w", err)
	}
	backendClient := backend.NewClient(cfg.Backend)
	products := productSvc.NewProductService(backendClient, nil, 0)
	cart := cartSvc.NewCartService(backendClient, products, pricing)

	return c, &client{
		cfg:       cfg,
		creds:     creds,
		cart:      cart,
		wholesale: wholesaleSvc.NewWholesaleService(backendClient, products, cfg.Wholesale),
		wishlist:  wishlistSvc.NewWishlistService(backendClient, cart),
		checkout:  checkoutSvc.NewCheckoutService(backendClient, cart, cfg.Wompi),
		out:       cmd.OutOrStdout(),
		toasts:    cmd.ErrOrStderr(),
	}, nil
}

// cartStore loads a cart container over svc and prints a toast for every snapshot that
// carries a change or an error.
func (cl *client) cartStore(c context.Context, svc *cartSvc.CartService) (*state.CartStore, error) {
	store := state.NewCartStore(svc, cl.creds)
	store.Subscribe(func(snapshot state.CartSnapshot) {
		cl.toast(snapshot.Status, snapshot.Err, snapshot.LastChange)
	})
	return store, store.Init(c)
}

func (cl *client) wishlistStore(c context.Context, cart *state.CartStore) (*state.WishlistStore, error) {
	store := state.NewWishlistStore(cl.wishlist, cl.creds, cart)
	store.Subscribe(func(snapshot state.WishlistSnapshot) {
		cl.toast(snapshot.Status, snapshot.Err, snapshot.LastChange)
	})
	return store, store.Init(c)
}

func (cl *client) toast(status state.Status, err error, change *state.Change) {
	switch {
	case status == state.STATUS_ERROR && err != nil:
		fmt.Fprintf(cl.toasts, "! %s\n", toastMessage(err))
	case status == state.STATUS_READY && change != nil && change.Action != state.ACTION_LOADED:
		if change.ProductID == "" {
			fmt.Fprintf(cl.toasts, "* %s\n", change.Action)
			return
		}
		fmt.Fprintf(cl.toasts, "* %s %s\n", change.Action, change.ProductID)
	}
}

func toastMessage(err error) string {
	var e *inErrors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func (cl *client) print(v any) error {
	encoder := json.NewEncoder(cl.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// clientCommand adapts a client action to cobra. Teardown of the containers happens in
// the action through defer.
func clientCommand(
	use string,
	short string,
	args cobra.PositionalArgs,
	run func(c context.Context, cl *client, args []string) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cl, err := newClient(cmd)
			if err != nil {
				return err
			}
			err = run(c, cl, args)
			if err != nil {
				zerolog.Ctx(c).Debug().Err(err).Msg("command failed")
			}
			return err
		},
	}
}
