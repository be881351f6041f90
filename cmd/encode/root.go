package encode

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ValentinKolb/dWire/cmd/util"
	"github.com/ValentinKolb/dWire/lib/buffer"
	"github.com/ValentinKolb/dWire/lib/ids"
	"github.com/ValentinKolb/dWire/rpc/common"
	"github.com/ValentinKolb/dWire/rpc/serializer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	EncodeCmd = &cobra.Command{
		Use:   "encode [flags] values...",
		Short: "Encode values or a request message into the token format",
		Long: fmt.Sprintf(`Encode values into the binary token format.

Values are given as type:value or as bare values. Bare values are read as
bool, int64, float64 or string, "null" encodes null.

Known types: %s

Examples:
  dwire encode int32:5 "string:hello world" guid:0f8fad5b-d9cb-469f-a165-70867728950e
  dwire encode --list 1 2 3
  dwire encode --request --target-grain 42 --method-id 7 int32:1 key`, strings.Join(sortedTypeNames(), ", ")),
		RunE: runEncode,
	}
)

func init() {
	key := "format"
	EncodeCmd.Flags().String(key, string(common.FormatHex), util.WrapString("Output format: hex (dump), raw (bytes) or frame (length prefixed frame)"))

	key = "list"
	EncodeCmd.Flags().Bool(key, false, util.WrapString("Encode all values as one object array instead of one value after another"))

	key = "request"
	EncodeCmd.Flags().Bool(key, false, util.WrapString("Encode a request message with the values as arguments"))

	key = "target-grain"
	EncodeCmd.Flags().String(key, "0", util.WrapString("Key of the target grain of the request (integer, guid or string)"))

	key = "interface-id"
	EncodeCmd.Flags().Int32(key, 0, util.WrapString("Interface id of the request"))

	key = "method-id"
	EncodeCmd.Flags().Int32(key, 0, util.WrapString("Method id of the request"))
}

func runEncode(cmd *cobra.Command, args []string) error {
	values := make([]any, 0, len(args))
	for _, arg := range args {
		v, err := ParseValue(arg)
		if err != nil {
			return err
		}
		values = append(values, v)
	}

	var (
		data []byte
		err  error
	)
	if viper.GetBool("request") {
		data, err = EncodeRequest(values, RequestOptions{
			Target:      ParseKey(viper.GetString("target-grain")),
			InterfaceID: viper.GetInt32("interface-id"),
			MethodID:    viper.GetInt32("method-id"),
		})
	} else {
		data, err = EncodeValues(values, viper.GetBool("list"))
	}
	if err != nil {
		return err
	}

	util.Logger.Debugf("encoded %d values into %d bytes", len(values), len(data))
	return WriteOutput(cmd.OutOrStdout(), common.OutputFormat(viper.GetString("format")), data)
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// RequestOptions addresses the request written by EncodeRequest
type RequestOptions struct {
	Target      ids.UniqueKey
	InterfaceID int32
	MethodID    int32
}

// EncodeValues writes values into one stream with a shared object table. If
// asList is set they are written as a single object array.
func EncodeValues(values []any, asList bool) ([]byte, error) {
	sink := buffer.NewSink(nil)
	defer sink.Release()

	ctx := serializer.NewContext(sink, serializer.NewRegistry(), nil)
	w, err := serializer.NewContextWriter(ctx)
	if err != nil {
		return nil, err
	}

	if asList {
		w.SerializeInner(values, serializer.TypeObject)
	} else {
		for _, v := range values {
			w.SerializeInner(v, serializer.TypeObject)
		}
	}
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "encoding values")
	}
	return sink.Snapshot().Bytes(), nil
}

// EncodeRequest writes a one way request message carrying values as arguments
func EncodeRequest(values []any, opts RequestOptions) ([]byte, error) {
	target := &ids.ActivationAddress{Grain: ids.NewGrainID(opts.Target)}
	msg := common.NewOneWayRequest(target, &common.InvokeMethodRequest{
		InterfaceID: opts.InterfaceID,
		MethodID:    opts.MethodID,
		Arguments:   values,
	})
	return serializer.NewTokenSerializer(nil, serializer.NewRegistry()).Serialize(msg)
}

// WriteOutput writes data to out in the given format
func WriteOutput(out io.Writer, format common.OutputFormat, data []byte) error {
	switch format {
	case common.FormatHex:
		_, err := io.WriteString(out, hex.Dump(data))
		return err
	case common.FormatRaw:
		_, err := out.Write(data)
		return err
	case common.FormatFrame:
		sink := buffer.NewSink(nil)
		defer sink.Release()
		sink.Attach(data)
		return buffer.WriteFrame(out, 0, uint64(ids.NextCorrelationID()), sink.Snapshot())
	default:
		return fmt.Errorf("invalid output format: %s", format)
	}
}

func sortedTypeNames() []string {
	names := TypeNames()
	sort.Strings(names)
	return names
}
