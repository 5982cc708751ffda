package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/facecrop/internal/utils"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [original_key]",
	Short: "List stored face crops, optionally for one original photo",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := openDB(cmd.Context()); err != nil {
			utils.Die("Database unavailable", err)
		}

		original := ""
		if len(args) == 1 {
			original = args[0]
		}
		crops, err := DB.ListCrops(cmd.Context(), original)
		if err != nil {
			utils.Die("Failed to list crops", err)
		}

		if len(crops) == 0 {
			fmt.Println("No crops found in database.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tORIGINAL\tFACE\tCREATED")
		fmt.Fprintln(w, "--\t--------\t----\t-------")

		for _, c := range crops {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, utils.Truncate(c.OriginalID, 48), c.FaceID, c.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
