package srpcmd

import (
	"fmt"
	"io"
	"time"

	"github.com/lehigh-university-libraries/srp/internal/holdings"
	"github.com/spf13/cobra"
)

// NewClassifyCmd creates the classify command
func NewClassifyCmd() *cobra.Command {
	var resource string
	var today string

	cmd := &cobra.Command{
		Use:   "classify <descriptor>...",
		Short: "Show how end-date descriptors are classified",
		Long: `Classify end-date descriptors the way the licensing report is read.

Useful when triaging CHECK_used_date_descriptors.txt: a descriptor shown as
"error: ..." could not be read as a date and ranks below every readable date.`,
		Example: `  srp classify "Fall 2015" "2 years ago" current
  srp classify --resource "JSTOR Arts & Sciences II" 12/31/2019`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if today != "" {
				t, err := time.Parse(holdings.DateLayout, today)
				if err != nil {
					return fmt.Errorf("invalid --today: %w", err)
				}
				now = t
			}
			return executeClassify(cmd.OutOrStdout(), args, resource, now)
		},
	}

	cmd.Flags().StringVar(&resource, "resource", "", "Resource name of the access point")
	cmd.Flags().StringVar(&today, "today", "", "Date to compute embargoes against (YYYY-MM-DD)")

	return cmd
}

func executeClassify(out io.Writer, descriptors []string, resource string, today time.Time) error {
	for _, d := range descriptors {
		end := holdings.Classify(d, resource, today)
		if _, err := fmt.Fprintf(out, "%q\t%s\t%s\t%s\n", d, end.Mode, end.Comparator(), end.Display); err != nil {
			return err
		}
	}
	return nil
}
