package srpcmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lehigh-university-libraries/srp/internal/config"
	"github.com/lehigh-university-libraries/srp/internal/lookup"
	"github.com/spf13/cobra"
)

// cacheFlags locate the cache file.
type cacheFlags struct {
	configPath string
	cache      string
}

func (f *cacheFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", config.DefaultPath, "Path to the YAML configuration file")
	cmd.Flags().StringVar(&f.cache, "cache", "", "Path to the lookup cache file (overrides the configuration)")
}

func (f *cacheFlags) path(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("cache") {
		return f.cache, nil
	}
	cfg, err := config.Load(f.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return "", err
	}
	if cfg.Lookup.Cache == "" {
		return "", fmt.Errorf("no lookup cache configured")
	}
	return cfg.Lookup.Cache, nil
}

// NewCacheListCmd creates the cache list command
func NewCacheListCmd() *cobra.Command {
	var f cacheFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached lookup keys and their identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := f.path(cmd)
			if err != nil {
				return err
			}
			return executeCacheList(path, cmd.OutOrStdout())
		},
	}
	f.register(cmd)
	return cmd
}

// NewCacheRemoveCmd creates the cache remove command
func NewCacheRemoveCmd() *cobra.Command {
	var f cacheFlags
	cmd := &cobra.Command{
		Use:   "remove <key>...",
		Short: "Remove cache entries so they are looked up again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := f.path(cmd)
			if err != nil {
				return err
			}
			return editCache(path, cmd.OutOrStdout(), func(c *lookup.Cache) (string, error) {
				for _, key := range args {
					if err := c.Remove(key); err != nil {
						return "", err
					}
				}
				return fmt.Sprintf("Removed %d entries", len(args)), nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

// NewCacheClearCmd creates the cache clear command
func NewCacheClearCmd() *cobra.Command {
	var f cacheFlags
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := f.path(cmd)
			if err != nil {
				return err
			}
			return editCache(path, cmd.OutOrStdout(), func(c *lookup.Cache) (string, error) {
				n := c.Len()
				c.Clear()
				return fmt.Sprintf("Cleared %d entries", n), nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func executeCacheList(path string, out io.Writer) error {
	cache, err := lookup.OpenCache(path, nil)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"key", "identifiers"})
	for _, key := range cache.Keys() {
		ids, _ := cache.Get(key)
		value := strings.Join(ids, " | ")
		if value == "" {
			value = "(none found)"
		}
		tw.AppendRow(table.Row{key, value})
	}

	if isTerminal(out) {
		fmt.Fprintln(out, tw.Render())
	} else {
		fmt.Fprintln(out, tw.RenderCSV())
	}
	fmt.Fprintf(out, "%d entries in %s\n", cache.Len(), path)
	return nil
}

// editCache applies edit under the cache lock and saves the result.
func editCache(path string, out io.Writer, edit func(*lookup.Cache) (string, error)) error {
	cache, err := lookup.OpenCache(path, nil)
	if err != nil {
		return err
	}
	if err := cache.Lock(); err != nil {
		return err
	}
	defer cache.Unlock()

	msg, err := edit(cache)
	if err != nil {
		return err
	}
	if err := cache.Save(); err != nil {
		return err
	}
	fmt.Fprintln(out, msg)
	return nil
}
