// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Command decldbg is the interactive shell for the declarative debugger
// back end. It wires a Session Controller to a scripted in-memory replay
// mechanism and front end, so the back end's state machine can be driven
// from the command line without a live traced program attached.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wangp/decldbg/internal/config"
	"github.com/wangp/decldbg/internal/dump"
	"github.com/wangp/decldbg/internal/event"
	"github.com/wangp/decldbg/internal/frontend"
	"github.com/wangp/decldbg/internal/replay"
	"github.com/wangp/decldbg/internal/session"
	"github.com/wangp/decldbg/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfgPath string
	cfg     *config.Config
	svc     *session.Service
	log     *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: logrus.New()}

	root := &cobra.Command{
		Use:   "decldbg",
		Short: "declarative debugger back end shell",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to a YAML config file (defaults applied if omitted)")

	root.AddCommand(
		a.startCmd(),
		a.restartCmd(),
		a.gotoCmd(),
		a.trustCmd(),
		a.setSearchModeCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) load() error {
	if a.cfgPath == "" {
		cfg, err := config.Default()
		if err != nil {
			return err
		}
		a.cfg = cfg
		return nil
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) service() (*session.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, err := session.NewService(a.cfg, replay.NewFake(), frontend.NewFake(), a.log)
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

func (a *app) startCmd() *cobra.Command {
	var dumpMode bool
	var dumpPath, dumpFormat string
	var eventNumber, callSeqno, callDepth int64
	var port string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "start a collection window from the current EXIT/FAIL/EXCP event",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			p, err := parsePort(port)
			if err != nil {
				return err
			}

			mode := session.ModeInteractive
			if dumpMode {
				mode = session.ModeDump
			}

			format, err := parseDumpFormat(dumpFormat)
			if err != nil {
				return err
			}

			res, err := svc.Controller.Start(context.Background(), session.StartRequest{
				Mode:       mode,
				DumpPath:   dumpPath,
				DumpFormat: format,
				Event: event.Event{
					Port:        p,
					EventNumber: eventNumber,
					CallSeqno:   callSeqno,
					CallDepth:   callDepth,
					Layout: event.ProcedureLayout{
						HasExecTracing: true,
						TraceLevel:     event.TraceLevelDeep,
					},
				},
			})
			if err != nil {
				return err
			}
			fmt.Printf("session started: %s\n", res.SessionID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dumpMode, "dump", false, "serialize the completed tree to a dump file instead of the front end")
	cmd.Flags().StringVar(&dumpPath, "outfile", "", "dump output path (required with --dump)")
	cmd.Flags().StringVar(&dumpFormat, "dump-format", "gob", "dump encoding: gob (dumpctl-readable) or yaml (external tooling)")
	cmd.Flags().Int64Var(&eventNumber, "event", 0, "triggering event number")
	cmd.Flags().Int64Var(&callSeqno, "seqno", 0, "triggering call_seqno")
	cmd.Flags().Int64Var(&callDepth, "depth", 1, "current call_depth")
	cmd.Flags().StringVar(&port, "port", "EXIT", "triggering port (EXIT, FAIL, or EXCP)")
	return cmd
}

func (a *app) restartCmd() *cobra.Command {
	var callPreceding int32
	var finalEvent, topmostSeqno int64
	var supertree bool

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "restart collection after a require_subtree/require_supertree response",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			return svc.Controller.Restart(context.Background(), store.NodeRef(callPreceding), finalEvent, topmostSeqno, supertree)
		},
	}
	cmd.Flags().Int32Var(&callPreceding, "call-preceding", -1, "NodeRef to link the new fragment's prev into")
	cmd.Flags().Int64Var(&finalEvent, "final-event", 0, "new last_event")
	cmd.Flags().Int64Var(&topmostSeqno, "topmost-seqno", 0, "new start_seqno")
	cmd.Flags().BoolVar(&supertree, "supertree", false, "grow outward instead of inward")
	return cmd
}

func (a *app) gotoCmd() *cobra.Command {
	var eventNumber int64

	cmd := &cobra.Command{
		Use:   "goto",
		Short: "rewind replay to just before the given event",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			return svc.Controller.GotoSelectedEvent(context.Background(), eventNumber)
		},
	}
	cmd.Flags().Int64Var(&eventNumber, "event", 0, "event number to rewind to")
	return cmd
}

func (a *app) trustCmd() *cobra.Command {
	trust := &cobra.Command{Use: "trust", Short: "manage the trust list"}

	addModule := &cobra.Command{
		Use:  "add-module <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			svc.Controller.AddTrustedModule(args[0])
			return nil
		},
	}

	addPred := &cobra.Command{
		Use:  "add-pred <description>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			svc.Controller.AddTrustedPredOrFunc(args[0])
			return nil
		},
	}

	trustStdlib := &cobra.Command{
		Use: "trust-stdlib",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			svc.Controller.TrustStandardLibrary()
			return nil
		},
	}

	var removeIndex int
	remove := &cobra.Command{
		Use: "remove",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			ok, err := svc.Controller.RemoveTrusted(removeIndex)
			if err != nil {
				return err
			}
			fmt.Println(ok)
			return nil
		},
	}
	remove.Flags().IntVar(&removeIndex, "index", 0, "trust list index to remove")

	var format string
	list := &cobra.Command{
		Use: "list",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			f := session.FormatTable
			if format == "plain" {
				f = session.FormatPlain
			}
			fmt.Print(svc.Controller.ListTrusted(f))
			return nil
		},
	}
	list.Flags().StringVar(&format, "format", "table", "table or plain")

	trust.AddCommand(addModule, addPred, trustStdlib, remove, list)
	return trust
}

func (a *app) setSearchModeCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "set-search-mode <top_down|divide_and_query>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			mode, ok := session.ParseSearchMode(args[0])
			if !ok {
				return session.ErrUnknownSearchMode
			}
			svc.Controller.SetFallbackSearchMode(mode)
			return nil
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the optional metrics HTTP endpoint and block",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := svc.Start(ctx); err != nil {
				return err
			}
			defer svc.Stop(ctx)

			fmt.Println("serving; press Ctrl+C to stop")
			select {}
		},
	}
}

func parseDumpFormat(s string) (dump.Format, error) {
	switch s {
	case "gob":
		return dump.FormatGob, nil
	case "yaml":
		return dump.FormatYAML, nil
	default:
		return 0, fmt.Errorf("decldbg: unknown dump format %q (want gob or yaml)", s)
	}
}

func parsePort(s string) (event.Port, error) {
	switch s {
	case "EXIT":
		return event.Exit, nil
	case "FAIL":
		return event.Fail, nil
	case "EXCP":
		return event.Excp, nil
	default:
		return 0, fmt.Errorf("decldbg: start() requires port EXIT, FAIL, or EXCP, got %q", s)
	}
}
