package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/repository"
	"github.com/iliyamo/neststay/internal/service"
)

var errDiscrepancies = errors.New("ledger discrepancies found")

func auditCmd() *cobra.Command {
	var (
		roomTypeID uint64
		from, to   string
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare the inventory ledger with the bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var start, end model.Date
			var err error
			if from != "" {
				if start, err = model.ParseDate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if end, err = model.ParseDate(to); err != nil {
					return err
				}
			}

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			db, err := openDB(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			auditor := service.NewAuditor(repository.NewInventoryRepo(db), repository.NewBookingRepo(db), log)
			report, err := auditor.Audit(cmd.Context(), roomTypeID, start, end)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "checked %d ledger rows against %d bookings\n", report.RowsChecked, report.BookingsChecked)
			if report.OK() {
				fmt.Fprintln(out, "ledger consistent")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tROOM TYPE\tDATE\tBOOKED\tTOTAL\tEXPECTED")
			for _, d := range report.Discrepancies {
				fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%d\n", d.Kind, d.RoomTypeID, d.Date, d.BookedUnits, d.TotalUnits, d.Expected)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return fmt.Errorf("%w: %d", errDiscrepancies, len(report.Discrepancies))
		},
	}
	cmd.Flags().Uint64Var(&roomTypeID, "room-type", 0, "Only audit this room type")
	cmd.Flags().StringVar(&from, "from", "", "First night to audit (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Night after the last one to audit (YYYY-MM-DD)")
	return cmd
}
