package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dWire/cmd/encode"
	"github.com/ValentinKolb/dWire/cmd/tokens"
	"github.com/ValentinKolb/dWire/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dwire",
		Short: "binary token stream encoder",
		Long: fmt.Sprintf(`dWire (v%s)

Encodes values and actor messages into the binary token stream format:
one token byte per value, little endian payloads, interned type headers and
back-references for objects written more than once.`, Version),
		PersistentPreRunE: util.SetupEncoder,
		SilenceUsage:      true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dWire",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dWire v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(encode.EncodeCmd)
	RootCmd.AddCommand(encode.PerfCmd)
	RootCmd.AddCommand(tokens.TokensCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupEncoderFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
