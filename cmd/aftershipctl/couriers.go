package main

import (
	"github.com/BearBump/ShipTrack/internal/directory"
	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/locale"
	"github.com/BearBump/ShipTrack/internal/services/tracker"
	"github.com/spf13/cobra"
)

func newDetectCmd(g *globalFlags) *cobra.Command {
	var (
		ref   trackingRef
		slugs []string
	)
	cmd := &cobra.Command{
		Use:   "detect <number>",
		Short: "Detect the couriers a tracking number may belong to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := g.connection()
			if err != nil {
				return err
			}
			cs, err := conn.DetectCouriers(cmd.Context(), aftership.DetectRequest{
				TrackingNumber: args[0],
				PostalCode:     ref.postalCode,
				ShipDate:       ref.shipDate,
				AccountNumber:  ref.account,
				Slugs:          slugs,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, cs)
		},
	}
	f := cmd.Flags()
	f.StringVar(&ref.postalCode, "postal-code", "", "tracking_postal_code, for couriers that need it")
	f.StringVar(&ref.shipDate, "ship-date", "", "tracking_ship_date (YYYYMMDD)")
	f.StringVar(&ref.account, "account-number", "", "tracking_account_number")
	f.StringSliceVar(&slugs, "only", nil, "limit detection to these slugs")
	return cmd
}

func newCouriersCmd(g *globalFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "couriers",
		Short: "List couriers enabled for the account (--all for every supported one)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := g.connection()
			if err != nil {
				return err
			}
			var cs []aftership.Courier
			if all {
				cs, err = conn.AllCouriers(cmd.Context())
			} else {
				cs, err = conn.EnabledCouriers(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, cs)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every courier AfterShip supports")
	return cmd
}

func newEventsCmd(g *globalFlags) *cobra.Command {
	var (
		language    int
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "events <number>",
		Short: "Show shipment status events the way the store displays them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := g.connection()
			if err != nil {
				return err
			}
			tr := tracker.New(
				func(key string) tracker.API { return conn.ForKey(key) },
				g.settings(),
				locale.NewCatalog(),
				directory.NewCountries(),
				nil,
				g.logger(),
			).WithProbing(concurrency, 0)

			ctx := locale.WithLanguage(cmd.Context(), language)
			return printJSON(cmd, tr.GetShipmentEvents(ctx, 0, args[0]))
		},
	}
	cmd.Flags().IntVar(&language, "language", locale.DefaultLanguage, "language id for status texts")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "couriers probed at once")
	return cmd
}

func newURLCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "url <number>",
		Short: "Print the public tracking page URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr := tracker.New(nil, g.settings(), locale.NewCatalog(), directory.NewCountries(), nil, g.logger())
			_, err := cmd.OutOrStdout().Write([]byte(tr.GetURL(cmd.Context(), args[0]) + "\n"))
			return err
		},
	}
}
