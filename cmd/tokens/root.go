package tokens

import (
	"fmt"
	"text/tabwriter"

	"github.com/ValentinKolb/dWire/cmd/util"
	"github.com/ValentinKolb/dWire/rpc/serializer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	TokensCmd = &cobra.Command{
		Use:   "tokens",
		Short: "Print the type token table",
		Long: `Print the token of every type and open generic shape that has one.
Types without a token are written by name.`,
		RunE: run,
	}
)

func init() {
	key := "shapes"
	TokensCmd.Flags().Bool(key, false, util.WrapString("Only print the open generic shapes"))
}

func run(cmd *cobra.Command, _ []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tHEX\tTYPE\tKIND")

	shapesOnly := viper.GetBool("shapes")
	for _, e := range serializer.TableEntries() {
		if shapesOnly && !e.Shape {
			continue
		}
		kind := "type"
		if e.Shape {
			kind = "shape"
		}
		fmt.Fprintf(tw, "%d\t0x%02x\t%s\t%s\n", byte(e.Token), byte(e.Token), e.Name, kind)
	}
	return tw.Flush()
}
