package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"cnc-frame-wizard/internal/config"
	"cnc-frame-wizard/internal/export"
	"cnc-frame-wizard/internal/report"
	"cnc-frame-wizard/internal/slots"
	"cnc-frame-wizard/internal/workspace"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var dataDir string

	rootCmd := &cobra.Command{
		Use:   "framewiz",
		Short: "Generate CNC G-code for door frames from hinge and lock profiles",
		Long: `framewiz resolves hinge, lock and frame G-code templates against the
selected profiles and the frame configuration, keeps operator edits of the
six generated files, and exports them for the machine controller.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides FRAMEWIZ_DATA_DIR)")

	app := &app{dataDir: &dataDir}

	rootCmd.AddCommand(
		app.statusCmd(),
		app.showCmd(),
		app.editCmd(),
		app.resetCmd(),
		app.varsCmd(),
		app.exportCmd(),
		app.selectCmd(),
		app.typeCmd(),
		app.profileCmd(),
		app.frameCmd(),
		app.frameGCodeCmd(),
		app.snapshotCmd(),
		app.projectCmd(),
		app.archiveCmd(),
		app.watchCmd(),
		app.copyCmd(),
	)
	return rootCmd
}

// app carries state shared by all commands.
type app struct {
	dataDir *string
	cfg     *config.Config
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if *a.dataDir != "" {
		cfg.DataDir = *a.dataDir
	}
	zerolog.SetGlobalLevel(cfg.Level())
	a.cfg = cfg
	return cfg, nil
}

func (a *app) open() (*workspace.Workspace, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}

	sides := export.LocalizedSides
	if cfg.SideNames == config.SideNamesPlain {
		sides = export.PlainSides
	}

	ws, err := workspace.Open(cfg.DataDir, workspace.WithSideNames(sides))
	if err != nil {
		return nil, fmt.Errorf("open workspace %s: %w", cfg.DataDir, err)
	}
	return ws, nil
}

// mutate opens the workspace, applies fn and persists the session.
func (a *app) mutate(fn func(ws *workspace.Workspace) error) error {
	ws, err := a.open()
	if err != nil {
		return err
	}
	if err := fn(ws); err != nil {
		return err
	}
	return ws.Save()
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the profile selection and the state of the six files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open()
			if err != nil {
				return err
			}
			hinge, lock := ws.Selection()
			_, frameFile := ws.Frame()
			return report.WriteStatus(cmd.OutOrStdout(), report.Status{
				HingeProfile: hinge,
				LockProfile:  lock,
				Ready:        ws.Ready(),
				FrameFile:    frameFile,
				Files:        ws.Files(),
			})
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	var auto bool
	cmd := &cobra.Command{
		Use:   "show <slot>",
		Short: "Print the content of a file (e.g. left_frame, right_hinge)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := slots.ParseSlot(args[0])
			if err != nil {
				return err
			}
			ws, err := a.open()
			if err != nil {
				return err
			}
			c := ws.Files()[s]
			text := c.Manual
			if auto {
				text = c.Auto
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().BoolVar(&auto, "auto", false, "Print the generated text instead of the edited text")
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <slot> <file|->",
		Short: "Replace a file's content by hand; it stops following regeneration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := slots.ParseSlot(args[0])
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			return a.mutate(func(ws *workspace.Workspace) error {
				if err := ws.UpdateFileContent(s, text); err != nil {
					return err
				}
				log.Info().Str("slot", s.String()).Msg("File locked to manual content")
				return nil
			})
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <slot>",
		Short: "Discard manual edits of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := slots.ParseSlot(args[0])
			if err != nil {
				return err
			}
			return a.mutate(func(ws *workspace.Workspace) error {
				return ws.ResetFile(s)
			})
		},
	}
}

func (a *app) varsCmd() *cobra.Command {
	var slot string
	cmd := &cobra.Command{
		Use:   "vars",
		Short: "Print the $-variables computed from the frame configuration",
		Long: `Print the $-variables computed from the frame configuration. With --slot,
print every value substituted into that file's template instead: the profile's
L and custom variables plus the $-namespace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var s slots.Slot
			if slot != "" {
				var err error
				if s, err = slots.ParseSlot(slot); err != nil {
					return err
				}
			}
			ws, err := a.open()
			if err != nil {
				return err
			}
			if slot != "" {
				return report.WriteValues(cmd.OutOrStdout(), ws.Values(s))
			}
			return report.WriteVars(cmd.OutOrStdout(), ws.Vars())
		},
	}
	cmd.Flags().StringVar(&slot, "slot", "", "Show the substitution set of one file (e.g. left_hinge)")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [dir]",
		Short: "Write the six files to <dir>/cnc, replacing any previous export",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open()
			if err != nil {
				return err
			}
			dir := a.cfg.OutputDir
			if len(args) == 1 {
				dir = args[0]
			}
			result, err := ws.Export(dir)
			if err != nil {
				return err
			}
			for _, f := range result.Files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
}

func (a *app) selectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <hinge-profile> <lock-profile>",
		Short: "Choose the hinge and lock profiles used for generation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(func(ws *workspace.Workspace) error {
				if err := ws.SelectProfiles(args[0], args[1]); err != nil {
					return err
				}
				if !ws.Ready() {
					log.Warn().
						Str("hinge_profile", args[0]).
						Str("lock_profile", args[1]).
						Msg("Selection does not name existing profiles, files not regenerated")
				}
				return nil
			})
		},
	}
}

func (a *app) frameGCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frame-gcode <left|right> <file|->",
		Short: "Set the frame template of one side",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := slots.ParseSide(args[0])
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			return a.mutate(func(ws *workspace.Workspace) error {
				return ws.SetFrameGCode(side, text)
			})
		},
	}
}

func (a *app) snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Save a timestamped copy of the profile document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open()
			if err != nil {
				return err
			}
			path, err := ws.SaveSnapshot()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Regenerate whenever the profile document or frame.yaml changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			ws, err := a.open()
			if err != nil {
				return err
			}
			return runWatch(ctx, ws, a.cfg.WatchDebounce)
		},
	}
}

func (a *app) copyCmd() *cobra.Command {
	var auto bool
	cmd := &cobra.Command{
		Use:   "copy <slot>",
		Short: "Copy a file's content to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := slots.ParseSlot(args[0])
			if err != nil {
				return err
			}
			ws, err := a.open()
			if err != nil {
				return err
			}
			c := ws.Files()[s]
			text := c.Manual
			if auto {
				text = c.Auto
			}
			if err := clipboard.WriteAll(text); err != nil {
				return fmt.Errorf("copy to clipboard: %w", err)
			}
			log.Info().Str("slot", s.String()).Int("bytes", len(text)).Msg("Copied to clipboard")
			return nil
		},
	}
	cmd.Flags().BoolVar(&auto, "auto", false, "Copy the generated text instead of the edited text")
	return cmd
}

// readInput reads a file argument, or stdin when the argument is "-".
func readInput(cmd *cobra.Command, arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", arg, err)
	}
	return string(data), nil
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
