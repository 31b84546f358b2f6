// Command flashcppcore is a smoke-test driver over the core module: it
// parses a fixture snippet through a Session and prints diagnostics, cached
// instantiation rows or a struct's layout as JSON; no subcommand runs the
// Instantiation Engine. It is explicitly NOT the compiler driver
// spec §1 places out of scope (no real lexer, no object-file emission) —
// it exists only to exercise compiler.Session end-to-end the way the
// teacher's own cmd/ tools exercise its core library, grounded on
// termfx-morfx's demo/cmd root-command-plus-subcommands structure.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/GregorGullwi/FlashCpp-sub002/compiler"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/config"
	"github.com/GregorGullwi/FlashCpp-sub002/internal/node"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the `flashcppcore` root command and its subcommands,
// split out from main so tests can inspect the command tree without
// invoking os.Exit.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flashcppcore",
		Short: "Smoke-test driver for the FlashCpp-sub002 core module",
		Long:  "Parses a .cpp fixture snippet and prints its diagnostics, a cached instantiation, or a struct's layout.",
	}

	var (
		envFile    string
		fixtureDir string
	)
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file read by internal/config.Load")
	rootCmd.PersistentFlags().StringVar(&fixtureDir, "fixtures", "fixtures", "directory globbed for **/*.cpp fixture snippets")

	rootCmd.AddCommand(
		newCompileCmd(&envFile, &fixtureDir),
		newDumpCacheCmd(),
		newInspectTypeCmd(&fixtureDir),
	)
	return rootCmd
}

// newCompileCmd builds the `compile` subcommand: load one named fixture
// (`--fixture`), parse it into a Session (opening the instantiation cache
// at `--cache` when given), and print its diagnostics.
func newCompileCmd(envFile, fixtureDir *string) *cobra.Command {
	var (
		fixtureName string
		cacheDSN    string
	)
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Parse a fixture snippet and report diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			limits, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			src, err := loadFixture(*fixtureDir, fixtureName)
			if err != nil {
				return err
			}
			s, err := compiler.New(src, *limits)
			if err != nil {
				return err
			}
			if cacheDSN != "" {
				if err := s.OpenCache(cacheDSN, false); err != nil {
					return fmt.Errorf("opening instantiation cache: %w", err)
				}
			}
			return printJSON(map[string]any{
				"fixture":     fixtureName,
				"diagnostics": s.Engine.Diagnostics,
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&fixtureName, "fixture", "f", "", "fixture file name (relative to --fixtures) to compile")
	fs.StringVarP(&cacheDSN, "cache", "c", "", "instantiation cache DSN (sqlite file path or libsql URL)")
	cmd.MarkFlagRequired("fixture")
	return cmd
}

// newDumpCacheCmd builds the `dump-cache` subcommand: connect to a
// persistent instantiation cache and print every diagnostic recorded
// against one instantiation key.
func newDumpCacheCmd() *cobra.Command {
	var (
		cacheDSN     string
		templateName string
		argsKey      string
	)
	cmd := &cobra.Command{
		Use:   "dump-cache",
		Short: "Print diagnostics recorded for one cached instantiation",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := compiler.NewWithDefaultLimits("")
			if err != nil {
				return err
			}
			if err := s.OpenCache(cacheDSN, false); err != nil {
				return err
			}
			row, ok, err := s.Cache.Lookup(templateName, argsKey)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no cached instantiation for %s(%s)", templateName, argsKey)
			}
			diags, err := s.Cache.DiagnosticsFor(templateName, argsKey)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"instantiation": row, "diagnostics": diags})
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&cacheDSN, "cache", "flashcppcore-cache.db", "instantiation cache DSN")
	fs.StringVar(&templateName, "template", "", "template name to look up")
	fs.StringVar(&argsKey, "args", "", "targ.List.CacheKey() rendering of the argument list")
	cmd.MarkFlagRequired("template")
	return cmd
}

// newInspectTypeCmd builds the `inspect-type` subcommand: parse a
// fixture, look up a top-level struct/class declaration by name, and print
// its type index, size in bits and field count. It instantiates nothing
// and prints no mangled name.
func newInspectTypeCmd(fixtureDir *string) *cobra.Command {
	var (
		fixtureName string
		className   string
	)
	cmd := &cobra.Command{
		Use:   "inspect-type",
		Short: "Print the layout of a struct/class declared in a fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := loadFixture(*fixtureDir, fixtureName)
			if err != nil {
				return err
			}
			s, err := compiler.NewWithDefaultLimits(src)
			if err != nil {
				return err
			}
			decl, ok := s.Lookup(className)
			if !ok {
				return fmt.Errorf("no top-level declaration named %q", className)
			}
			sd, ok := node.Get[*node.StructDeclaration](s.Arena, decl)
			if !ok {
				return fmt.Errorf("%q does not name a struct/class", className)
			}
			ti, ok := s.Types.Get(sd.TypeIndex)
			if !ok {
				return fmt.Errorf("%q has no finalized layout (class template not instantiated)", className)
			}
			return printJSON(map[string]any{
				"name":      className,
				"typeIndex": sd.TypeIndex,
				"sizeBits":  ti.SizeBits,
				"fields":    len(sd.Fields),
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&fixtureName, "fixture", "f", "", "fixture file name (relative to --fixtures)")
	fs.StringVarP(&className, "type", "t", "", "class/struct name to inspect")
	cmd.MarkFlagRequired("fixture")
	cmd.MarkFlagRequired("type")
	return cmd
}

// loadFixture globs fixtureDir for **/*.cpp snippets (mirroring the
// teacher's FileWalker.matchPattern use of doublestar.PathMatch) and
// returns the contents of the one matching name, by base filename.
func loadFixture(fixtureDir, name string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(fixtureDir), "**/*.cpp")
	if err != nil {
		return "", fmt.Errorf("globbing fixtures: %w", err)
	}
	sort.Strings(matches)
	for _, m := range matches {
		if filepath.Base(m) == name || m == name {
			b, err := os.ReadFile(filepath.Join(fixtureDir, m))
			if err != nil {
				return "", err
			}
			return string(b), nil
		}
	}
	return "", fmt.Errorf("no fixture named %q under %s (found %d candidates)", name, fixtureDir, len(matches))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
