package main

import (
	"encoding/json"
	"errors"

	"github.com/MediSynth-io/contentplanner/internal/mailer"
	"github.com/MediSynth-io/contentplanner/internal/reminder"
	"github.com/MediSynth-io/contentplanner/internal/store"
	"github.com/spf13/cobra"
)

func newDispatchCmd(e *env) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Send due reminder emails",
		Long: `Run the reminder dispatcher. With --once a single scan runs and its
result is printed as JSON; otherwise the worker loops until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			d := reminder.NewDispatcher(store.FromDB(db), mailer.New(e.cfg.Email, e.log), reminder.Options{
				BatchSize:      e.cfg.Reminders.BatchSize,
				Lease:          e.cfg.Reminders.Lease,
				SendsPerSecond: e.cfg.Reminders.SendsPerSecond,
			}, e.log)

			if !once {
				w := &reminder.Worker{Dispatcher: d, Interval: e.cfg.Reminders.Interval, Log: e.log}
				w.Run(cmd.Context())
				return nil
			}

			res, err := d.ScanOnce(cmd.Context())
			if encErr := json.NewEncoder(cmd.OutOrStdout()).Encode(res); encErr != nil {
				return errors.Join(err, encErr)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single scan and exit")
	return cmd
}
