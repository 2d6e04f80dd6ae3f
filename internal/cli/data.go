package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"cnc-frame-wizard/internal/archive"
	"cnc-frame-wizard/internal/project"
	"cnc-frame-wizard/internal/report"
	"cnc-frame-wizard/internal/slots"
	"cnc-frame-wizard/internal/textutil"
	"cnc-frame-wizard/internal/watcher"
	"cnc-frame-wizard/internal/workspace"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *app) projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Save and list project snapshots",
	}

	saveCmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Write the $-variables and the six files to projects/<name>/project.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open()
			if err != nil {
				return err
			}
			path, err := ws.SaveProject(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			entries, err := project.Walk(workspace.PathsFor(cfg.DataDir).Projects)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, report.MutedStyle.Render("(no projects)"))
			}
			for _, e := range entries {
				line := fmt.Sprintf("%-24s %s", e.Name, e.ModTime.Format(time.DateTime))
				if e.Legacy {
					line += report.MutedStyle.Render("  legacy")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.AddCommand(saveCmd, listCmd)
	return cmd
}

func (a *app) archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive project snapshots in PostgreSQL (FRAMEWIZ_DATABASE_URL)",
	}

	var all bool
	var workers int
	pushCmd := &cobra.Command{
		Use:   "push [name]",
		Short: "Store a saved project, or every project with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			arc, closeFn, err := a.openArchive(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			root := workspace.PathsFor(a.cfg.DataDir).Projects
			out := cmd.OutOrStdout()

			if all {
				results, err := arc.PushAll(ctx, root, workers)
				if err != nil {
					return err
				}
				var failed int
				for _, r := range results {
					if r.Err != nil {
						failed++
						log.Error().Err(r.Err).Str("project", r.Name).Msg("Archive push failed")
						continue
					}
					fmt.Fprintf(out, "%-24s %s %s\n", r.Name, textutil.Truncate(r.Hash, 12), pushState(r.Inserted))
				}
				if failed > 0 {
					return fmt.Errorf("archive push: %d of %d projects failed", failed, len(results))
				}
				return nil
			}

			snap, err := project.LoadByName(root, args[0])
			if err != nil {
				return err
			}
			inserted, hash, err := arc.Push(ctx, args[0], snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-24s %s %s\n", args[0], textutil.Truncate(hash, 12), pushState(inserted))
			return nil
		},
	}
	pushCmd.Flags().BoolVar(&all, "all", false, "Push every project under the projects directory")
	pushCmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Concurrent pushes with --all")

	var limit int
	listCmd := &cobra.Command{
		Use:   "list [name]",
		Short: "List archived snapshots, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			arc, closeFn, err := a.openArchive(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			var name string
			if len(args) == 1 {
				name = args[0]
			}
			records, err := arc.List(ctx, name, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintf(out, "%-24s %s %s\n", r.Name, textutil.Truncate(r.Hash, 12), r.TakenAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of snapshots")

	showCmd := &cobra.Command{
		Use:   "show <hash>",
		Short: "Print an archived snapshot; a unique hash prefix is enough",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			arc, closeFn, err := a.openArchive(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			name, snap, err := arc.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return writeSnapshot(cmd.OutOrStdout(), name, snap)
		},
	}

	cmd.AddCommand(pushCmd, listCmd, showCmd)
	return cmd
}

// writeSnapshot prints a project snapshot: its $-variables, then the text of
// every slot in canonical order.
func writeSnapshot(w io.Writer, name string, snap project.Snapshot) error {
	fmt.Fprintf(w, "%s %s\n\n", report.TitleStyle.Render(name), snap.Timestamp.Local().Format(time.DateTime))
	if err := report.WriteVars(w, snap.DollarVariables); err != nil {
		return err
	}
	for _, s := range slots.All {
		text, ok := snap.GeneratedGCodes[s.String()]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", report.HeaderStyle.Render(s.String()))
		if text == "" {
			fmt.Fprintln(w, report.MutedStyle.Render("(empty)"))
			continue
		}
		fmt.Fprintln(w, strings.TrimRight(text, "\r\n"))
	}
	return nil
}

func pushState(inserted bool) string {
	if inserted {
		return "stored"
	}
	return report.MutedStyle.Render("unchanged")
}

func (a *app) openArchive(ctx context.Context) (*archive.Archive, func(), error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	pool, err := archive.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	arc := archive.New(pool)
	if err := arc.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := arc.Preload(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to preload archive hashes")
	}
	return arc, pool.Close, nil
}

// runWatch reloads the workspace whenever the profile document or frame
// configuration changes on disk, until ctx is cancelled.
func runWatch(ctx context.Context, ws *workspace.Workspace, debounce time.Duration) error {
	fw, err := watcher.New(debounce)
	if err != nil {
		return err
	}

	paths := ws.Paths()
	for _, p := range []string{paths.Current, paths.Frame} {
		if err := fw.AddFile(p); err != nil {
			return err
		}
	}

	ws.OnFilesUpdated(func(up workspace.Update) {
		for _, s := range up.Changed {
			log.Info().Str("slot", s.String()).Msg("File regenerated")
		}
	})

	fw.AddHandler(func(changed []string) error {
		log.Info().Strs("paths", changed).Msg("Inputs changed, regenerating")
		if _, err := ws.Reload(); err != nil {
			return err
		}
		return ws.Save()
	})

	log.Info().Str("profiles", paths.Current).Str("frame", paths.Frame).Msg("Watching for changes")
	return fw.Run(ctx)
}
