package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/AnatoleLucet/observe"
	"github.com/AnatoleLucet/observe/loop"
	"github.com/spf13/cobra"
)

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Print the tick backend selected for each loop capability",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := probe(cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "HOST\tBACKEND\tMICROTASK")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%t\n", r.host, r.backend, r.microtask)
			}
			return w.Flush()
		},
	}
}

type probeRow struct {
	host      string
	backend   observe.BackendKind
	microtask bool
}

func probe(cmd *cobra.Command) ([]probeRow, error) {
	ctx := cmd.Context()

	l := loop.New(nil)
	go l.Run(ctx)
	defer l.Stop()

	var rows []probeRow
	for _, name := range append([]string{"loop"}, backends...) {
		var host any = l
		if name != "loop" {
			h, err := hostFor(l, name)
			if err != nil {
				return nil, err
			}
			host = h
		}

		var installErr error
		err := l.Do(ctx, func() {
			if installErr = observe.Install(observe.WithHost(host)); installErr != nil {
				return
			}
			rows = append(rows, probeRow{name, observe.Backend(), observe.UsesMicrotask()})
		})
		if err != nil {
			return nil, err
		}
		if installErr != nil {
			return nil, fmt.Errorf("probe %s: %w", name, installErr)
		}
	}

	return rows, nil
}
