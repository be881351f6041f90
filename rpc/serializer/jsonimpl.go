package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/dWire/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding.
// Headers and bodies come back as generic json values.
func NewJSONSerializer() IMessageCodec {
	return &jsonSerializerImpl{stats: newSizeStats()}
}

// jsonSerializerImpl implements the IMessageCodec interface using json encoding
type jsonSerializerImpl struct {
	stats *sizeStats
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IMessageCodec)
// --------------------------------------------------------------------------

func (j *jsonSerializerImpl) Serialize(msg *common.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	j.stats.mark(len(data))
	return data, nil
}

func (j *jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return json.Unmarshal(b, msg)
}

func (j *jsonSerializerImpl) Stats() Stats {
	return j.stats.snapshot()
}
