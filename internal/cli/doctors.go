package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "doctors [especialidad]",
		Short: "List available doctors",
		Args:  cobra.MaximumNArgs(1),
		Run:   runDoctors,
	}

	RootCmd.AddCommand(cmd)
}

func runDoctors(cmd *cobra.Command, args []string) {
	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	specialty := ""
	if len(args) == 1 {
		specialty = args[0]
	}
	docs, err := s.FindDoctors(cmd.Context(), specialty)
	if err != nil {
		exitErr("find doctors", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOMBRE\tESPECIALIDAD")
	for _, d := range docs {
		fmt.Fprintf(w, "%d\t%s\t%s\n", d.ID, d.Name, d.Specialty)
	}
	w.Flush()
}
