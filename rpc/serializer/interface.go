package serializer

import "github.com/ValentinKolb/dWire/rpc/common"

// IMessageSerializer is the interface for all message serializers
type IMessageSerializer interface {
	// Serialize serializes a Message into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg *common.Message) ([]byte, error)
	// Stats returns size and rate statistics of the serialized messages
	Stats() Stats
}

// IMessageCodec is a message serializer that can also read its own format
type IMessageCodec interface {
	IMessageSerializer
	// Deserialize deserializes a byte array into a Message
	// It takes a byte array and a pointer to a Message as parameters
	// It returns an error if any
	Deserialize(b []byte, msg *common.Message) error
}
