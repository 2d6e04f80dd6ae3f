package cli

import (
	"fmt"
	"strings"

	"cnc-frame-wizard/internal/catalog"
	"cnc-frame-wizard/internal/frame"
	"cnc-frame-wizard/internal/gcode"
	"cnc-frame-wizard/internal/report"
	"cnc-frame-wizard/internal/workspace"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *app) typeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type",
		Short: "Manage hinge and lock G-code types",
	}

	listCmd := &cobra.Command{
		Use:   "list [hinge|lock]",
		Short: "List types",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := categoriesArg(args)
			if err != nil {
				return err
			}
			ws, err := a.open()
			if err != nil {
				return err
			}
			for _, cat := range cats {
				title := capitalize(string(cat)) + " types"
				if err := report.WriteList(cmd.OutOrStdout(), title, ws.TypeNames(cat), ""); err != nil {
					return err
				}
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <hinge|lock> <name>",
		Short: "Print a type's template and the variables it references",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.ParseCategory(args[0])
			if err != nil {
				return err
			}
			ws, err := a.open()
			if err != nil {
				return err
			}
			t, ok := ws.Type(cat, args[1])
			if !ok {
				return fmt.Errorf("%s type %q: %w", cat, args[1], catalog.ErrNotFound)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.TitleStyle.Render(t.Name))
			fmt.Fprintln(out, t.GCode)
			fmt.Fprintln(out)
			for _, kind := range []gcode.Kind{gcode.LVariable, gcode.CustomVariable, gcode.DollarVariable} {
				for _, p := range gcode.Filter(gcode.Scan(t.GCode), kind) {
					line := fmt.Sprintf("  %-8s %s", kind, p.Name)
					if p.HasDefault {
						line += report.MutedStyle.Render(fmt.Sprintf(" (default %q)", p.Default))
					}
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}

	var image, preview string
	addCmd := &cobra.Command{
		Use:   "add <hinge|lock> <name> <file|->",
		Short: "Add or replace a type from a template file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.ParseCategory(args[0])
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args[2])
			if err != nil {
				return err
			}
			return a.mutate(func(ws *workspace.Workspace) error {
				return ws.PutType(cat, catalog.Type{Name: args[1], GCode: text, Image: image, Preview: preview})
			})
		},
	}
	addCmd.Flags().StringVar(&image, "image", "", "Image path shown for the type")
	addCmd.Flags().StringVar(&preview, "preview", "", "Preview image path")

	rmCmd := &cobra.Command{
		Use:   "rm <hinge|lock> <name>",
		Short: "Delete a type; profiles using it stop generating",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.ParseCategory(args[0])
			if err != nil {
				return err
			}
			return a.mutate(func(ws *workspace.Workspace) error {
				if err := ws.DeleteType(cat, args[1]); err != nil {
					return err
				}
				warnDangling(ws, cat)
				return nil
			})
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename <hinge|lock> <old> <new>",
		Short: "Rename a type; profile references are not rewritten",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.ParseCategory(args[0])
			if err != nil {
				return err
			}
			return a.mutate(func(ws *workspace.Workspace) error {
				if err := ws.RenameType(cat, args[1], args[2]); err != nil {
					return err
				}
				warnDangling(ws, cat)
				return nil
			})
		},
	}

	cmd.AddCommand(listCmd, showCmd, addCmd, rmCmd, renameCmd)
	return cmd
}

func (a *app) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage hinge and lock profiles",
	}

	listCmd := &cobra.Command{
		Use:   "list [hinge|lock]",
		Short: "List profiles; the selected one is marked",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := categoriesArg(args)
			if err != nil {
				return err
			}
			ws, err := a.open()
			if err != nil {
				return err
			}
			hinge, lock := ws.Selection()
			for _, cat := range cats {
				selected := hinge
				if cat == catalog.Lock {
					selected = lock
				}
				title := capitalize(string(cat)) + " profiles"
				if err := report.WriteList(cmd.OutOrStdout(), title, ws.ProfileNames(cat), selected); err != nil {
					return err
				}
			}
			return nil
		},
	}

	var vars []string
	var image string
	addCmd := &cobra.Command{
		Use:   "add <hinge|lock> <name> <type>",
		Short: "Add or replace a profile (--var L1=12 --var depth=3)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.ParseCategory(args[0])
			if err != nil {
				return err
			}
			p, err := buildProfile(args[1], args[2], vars)
			if err != nil {
				return err
			}
			p.Image = image
			return a.mutate(func(ws *workspace.Workspace) error {
				if t, ok := ws.Type(cat, p.Type); ok {
					warnUnset(p, t)
				} else {
					log.Warn().Str("type", p.Type).Msg("Profile references a type that does not exist")
				}
				return ws.PutProfile(cat, p)
			})
		},
	}
	addCmd.Flags().StringArrayVar(&vars, "var", nil, "Variable as name=value; L<digits> names are L-variables")
	addCmd.Flags().StringVar(&image, "image", "", "Image path shown for the profile")

	rmCmd := &cobra.Command{
		Use:   "rm <hinge|lock> <name>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.ParseCategory(args[0])
			if err != nil {
				return err
			}
			return a.mutate(func(ws *workspace.Workspace) error {
				return ws.DeleteProfile(cat, args[1])
			})
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename <hinge|lock> <old> <new>",
		Short: "Rename a profile",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.ParseCategory(args[0])
			if err != nil {
				return err
			}
			return a.mutate(func(ws *workspace.Workspace) error {
				return ws.RenameProfile(cat, args[1], args[2])
			})
		},
	}

	cmd.AddCommand(listCmd, addCmd, rmCmd, renameCmd)
	return cmd
}

func (a *app) frameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Manage the frame configuration (frame.yaml)",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default frame.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(func(ws *workspace.Workspace) error {
				if _, found := ws.Frame(); found && !force {
					return fmt.Errorf("%s already exists (use --force to overwrite)", ws.Paths().Frame)
				}
				if err := ws.OnConfigurationChanged(frame.Default()); err != nil {
					return err
				}
				if err := ws.SaveFrame(); err != nil {
					return err
				}
				log.Info().Str("path", ws.Paths().Frame).Msg("Wrote default frame configuration")
				return nil
			})
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing frame.yaml")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the frame configuration and its $-variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open()
			if err != nil {
				return err
			}
			cfg, _ := ws.Frame()
			data, err := frame.Encode(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, string(data))
			fmt.Fprintln(out)

			active := cfg.ActiveComponents()
			if len(active) == 0 {
				active = []string{report.MutedStyle.Render("(none)")}
			}
			fmt.Fprintln(out, report.TitleStyle.Render("Active components")+" "+strings.Join(active, ", "))
			fmt.Fprintln(out)
			return report.WriteVars(out, ws.Vars())
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

// buildProfile routes name=value pairs into L and custom variables by name.
func buildProfile(name, typeName string, pairs []string) (catalog.Profile, error) {
	p := catalog.Profile{
		Name:            name,
		Type:            typeName,
		LVariables:      catalog.Values{},
		CustomVariables: catalog.Values{},
	}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return catalog.Profile{}, fmt.Errorf("variable %q: want name=value", pair)
		}
		switch gcode.Classify(k) {
		case gcode.LVariable:
			p.LVariables[k] = v
		case gcode.DollarVariable:
			return catalog.Profile{}, fmt.Errorf("variable %q: $-variables come from the frame configuration", k)
		default:
			p.CustomVariables[k] = v
		}
	}
	return p, nil
}

// warnUnset logs template variables the profile leaves to their defaults.
func warnUnset(p catalog.Profile, t catalog.Type) {
	vars := p.Variables()
	for _, ph := range gcode.Scan(t.GCode) {
		if ph.Kind == gcode.DollarVariable {
			continue
		}
		if _, ok := vars[ph.Name]; ok {
			continue
		}
		if ph.HasDefault {
			log.Debug().Str("variable", ph.Name).Str("default", ph.Default).Msg("Profile leaves template variable at its default")
			continue
		}
		log.Warn().Str("variable", ph.Name).Str("type", t.Name).Msg("Profile does not set template variable")
	}
}

func warnDangling(ws *workspace.Workspace, cat catalog.Category) {
	if names := ws.DanglingProfiles(cat); len(names) > 0 {
		log.Warn().Str("category", string(cat)).Strs("profiles", names).Msg("Profiles reference a missing type")
	}
}

func categoriesArg(args []string) ([]catalog.Category, error) {
	if len(args) == 0 {
		return catalog.Categories, nil
	}
	cat, err := catalog.ParseCategory(args[0])
	if err != nil {
		return nil, err
	}
	return []catalog.Category{cat}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
