package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mamtil/speak/internal/cache"
	"github.com/spf13/cobra"
)

var (
	clearCache bool

	cacheCmd = &cobra.Command{
		Use:     "cache",
		Short:   "Show or clear the remote audio cache",
		Long:    paragraph(fmt.Sprintf("\nShow how much synthesized audio the %s backend has cached, or clear it.", keyword("remote"))),
		Example: paragraph("speak cache\nspeak cache --clear"),
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			m, err := newCacheManager(speechConfig.Remote.Cache)
			if err != nil {
				return err
			}
			defer m.Close() //nolint:errcheck

			return runCache(os.Stdout, m, clearCache)
		},
	}
)

func runCache(w io.Writer, m *cache.Manager, clearAll bool) error {
	if clearAll {
		if err := m.Clear(); err != nil {
			return fmt.Errorf("unable to clear cache: %w", err)
		}
		fmt.Fprintln(w, "Cache cleared.")
		return nil
	}
	fmt.Fprintln(w, m.Stats())
	return nil
}

func init() {
	cacheCmd.Flags().BoolVar(&clearCache, "clear", false, "remove every cached entry")
}
