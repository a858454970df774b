package cmd

import (
	"github.com/lehigh-university-libraries/srp/internal/srpcmd"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit the bibliographic lookup cache",
		Long: `The lookup cache maps bibliographic lookup keys (OCLC numbers) to the
identifiers the lookup service returned for them. Entries with no identifiers
record lookups that found nothing. Removing an entry makes the next match run
ask the service again.`,
	}

	// Add cache subcommands
	cmd.AddCommand(srpcmd.NewCacheListCmd())
	cmd.AddCommand(srpcmd.NewCacheRemoveCmd())
	cmd.AddCommand(srpcmd.NewCacheClearCmd())

	return cmd
}
