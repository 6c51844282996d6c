package main

import (
	"strings"

	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/spf13/cobra"
)

// trackingRef identifies a tracking by id or by slug and number.
type trackingRef struct {
	id         string
	slug       string
	postalCode string
	shipDate   string
	account    string
}

func (r *trackingRef) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&r.id, "id", "", "AfterShip tracking id")
	f.StringVar(&r.slug, "slug", "", "courier slug")
	f.StringVar(&r.postalCode, "postal-code", "", "tracking_postal_code, for couriers that need it")
	f.StringVar(&r.shipDate, "ship-date", "", "tracking_ship_date (YYYYMMDD)")
	f.StringVar(&r.account, "account-number", "", "tracking_account_number")
}

func (r *trackingRef) tracking(args []string) *aftership.Tracking {
	t := &aftership.Tracking{
		ID:                    r.id,
		Slug:                  r.slug,
		TrackingPostalCode:    r.postalCode,
		TrackingShipDate:      r.shipDate,
		TrackingAccountNumber: r.account,
	}
	if len(args) > 0 {
		t.TrackingNumber = args[0]
	}
	return t
}

func newGetCmd(g *globalFlags) *cobra.Command {
	var (
		ref    trackingRef
		fields []string
		lang   string
	)
	cmd := &cobra.Command{
		Use:   "get [number]",
		Short: "Get one tracking by --id or by --slug and number",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := g.connection()
			if err != nil {
				return err
			}
			q := &aftership.TrackingQuery{Lang: lang}
			for _, f := range fields {
				if tf, ok := aftership.ParseTrackingField(f); ok {
					q.Fields = append(q.Fields, tf)
				}
			}
			t, err := conn.GetTracking(cmd.Context(), ref.tracking(args), q)
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		},
	}
	ref.bind(cmd)
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to return, e.g. title,tag")
	cmd.Flags().StringVar(&lang, "lang", "", "checkpoint message language")
	return cmd
}

func newCreateCmd(g *globalFlags) *cobra.Command {
	var (
		ref      trackingRef
		title    string
		customer string
		orderID  string
		orderURL string
		emails   []string
		dest     string
	)
	cmd := &cobra.Command{
		Use:   "create <number>",
		Short: "Register a tracking number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := g.connection()
			if err != nil {
				return err
			}
			t := ref.tracking(args)
			t.Title = args[0]
			if title != "" {
				t.Title = title
			}
			t.CustomerName = customer
			t.OrderID = orderID
			t.OrderIDPath = orderURL
			t.Emails = emails
			t.DestinationCountry = aftership.ParseIso3Country(dest)
			out, err := conn.CreateTracking(cmd.Context(), t)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	ref.bind(cmd)
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "title (defaults to the number)")
	f.StringVar(&customer, "customer", "", "customer name")
	f.StringVar(&orderID, "order-id", "", "order id")
	f.StringVar(&orderURL, "order-url", "", "order page URL")
	f.StringSliceVar(&emails, "email", nil, "notification email, repeatable")
	f.StringVar(&dest, "destination", "", "destination country, ISO 3166-1 alpha-3")
	return cmd
}

func newUpdateCmd(g *globalFlags) *cobra.Command {
	var (
		ref      trackingRef
		title    string
		customer string
		orderID  string
		orderURL string
		emails   []string
	)
	cmd := &cobra.Command{
		Use:   "update [number]",
		Short: "Update the mutable fields of a tracking",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := g.connection()
			if err != nil {
				return err
			}
			t := ref.tracking(args)
			t.Title = title
			t.CustomerName = customer
			t.OrderID = orderID
			t.OrderIDPath = orderURL
			t.Emails = emails
			out, err := conn.UpdateTracking(cmd.Context(), t)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	ref.bind(cmd)
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "title")
	f.StringVar(&customer, "customer", "", "customer name")
	f.StringVar(&orderID, "order-id", "", "order id")
	f.StringVar(&orderURL, "order-url", "", "order page URL")
	f.StringSliceVar(&emails, "email", nil, "notification email, repeatable")
	return cmd
}

func newDeleteCmd(g *globalFlags) *cobra.Command {
	var ref trackingRef
	cmd := &cobra.Command{
		Use:   "delete [number]",
		Short: "Delete a tracking",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := g.connection()
			if err != nil {
				return err
			}
			ok, err := conn.DeleteTracking(cmd.Context(), ref.tracking(args))
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]bool{"deleted": ok})
		},
	}
	ref.bind(cmd)
	return cmd
}

func newRetrackCmd(g *globalFlags) *cobra.Command {
	var ref trackingRef
	cmd := &cobra.Command{
		Use:   "retrack [number]",
		Short: "Reactivate an expired tracking",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := g.connection()
			if err != nil {
				return err
			}
			active, err := conn.Retrack(cmd.Context(), ref.tracking(args))
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]bool{"active": active})
		},
	}
	ref.bind(cmd)
	return cmd
}

func newLastCheckpointCmd(g *globalFlags) *cobra.Command {
	var (
		ref  trackingRef
		lang string
	)
	cmd := &cobra.Command{
		Use:   "last-checkpoint [number]",
		Short: "Show the latest checkpoint of a tracking",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := g.connection()
			if err != nil {
				return err
			}
			cp, err := conn.GetLastCheckpoint(cmd.Context(), ref.tracking(args), &aftership.CheckpointQuery{Lang: lang})
			if err != nil {
				return err
			}
			return printJSON(cmd, cp)
		},
	}
	ref.bind(cmd)
	cmd.Flags().StringVar(&lang, "lang", "", "checkpoint message language")
	return cmd
}

func newListCmd(g *globalFlags) *cobra.Command {
	var (
		page, limit int
		keyword     string
		tags        []string
		slugs       []string
		dests       []string
		all         bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trackings page by page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := g.connection()
			if err != nil {
				return err
			}
			p := aftership.NewListParams()
			p.Page, p.Limit, p.Keyword = page, limit, keyword
			for _, t := range tags {
				p.AddTag(aftership.ParseStatusTag(t))
			}
			for _, s := range slugs {
				p.AddSlug(strings.TrimSpace(s))
			}
			for _, d := range dests {
				if c := aftership.ParseIso3Country(d); c.Valid() {
					p.AddDestination(c)
				}
			}

			res, err := conn.ListTrackings(cmd.Context(), p)
			if err != nil {
				return err
			}
			out := res.Trackings
			for all && res.HasMore() {
				if res, err = conn.ListTrackingsNextPage(cmd.Context(), p); err != nil {
					return err
				}
				out = append(out, res.Trackings...)
			}
			return printJSON(cmd, map[string]any{"total": res.Total, "trackings": nonNil(out)})
		},
	}
	f := cmd.Flags()
	f.IntVar(&page, "page", aftership.DefaultPage, "page number")
	f.IntVar(&limit, "limit", aftership.DefaultLimit, "page size (max 200)")
	f.StringVar(&keyword, "keyword", "", "search keyword")
	f.StringSliceVar(&tags, "tag", nil, "status tag filter, e.g. InTransit")
	f.StringSliceVar(&slugs, "slug", nil, "courier slug filter")
	f.StringSliceVar(&dests, "destination", nil, "destination country filter (alpha-3)")
	f.BoolVar(&all, "all", false, "follow all pages")
	return cmd
}

func nonNil(ts []*aftership.Tracking) []*aftership.Tracking {
	if ts == nil {
		return []*aftership.Tracking{}
	}
	return ts
}
