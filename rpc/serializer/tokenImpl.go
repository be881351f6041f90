package serializer

import (
	"github.com/ValentinKolb/dWire/lib/buffer"
	"github.com/ValentinKolb/dWire/rpc/common"
	"github.com/pkg/errors"
)

// NewTokenSerializer creates a new serializer writing the binary token format.
// Segments are rented from pool (nil selects the default pool), values without
// a built-in encoding are passed to dispatcher (may be nil).
func NewTokenSerializer(pool *buffer.Pool, dispatcher IObjectSerializer) IMessageSerializer {
	return &tokenSerializerImpl{
		pool:       pool,
		dispatcher: dispatcher,
		stats:      newSizeStats(),
	}
}

// tokenSerializerImpl implements IMessageSerializer using the token format
type tokenSerializerImpl struct {
	pool       *buffer.Pool
	dispatcher IObjectSerializer
	stats      *sizeStats
}

// Bit flags to indicate which optional fields are present
const (
	hasSender  byte = 1 << 0
	hasTarget  byte = 1 << 1
	hasHeaders byte = 1 << 2
	hasBody    byte = 1 << 3
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IMessageSerializer)
// --------------------------------------------------------------------------

// Serialize writes the message as
//
//	type(1) flags(1) id(8) [sender] [target] [headers] [body length(4) body]
//
// Headers and body share one object table, the body is written through a
// nested context into its own sink and linked in after its length.
func (s *tokenSerializerImpl) Serialize(msg *common.Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.Wrap(ErrInvalidValue, "nil message")
	}

	sink := buffer.NewSink(s.pool)
	defer sink.Release()

	ctx := NewContext(sink, s.dispatcher, msg)
	w, err := NewContextWriter(ctx)
	if err != nil {
		return nil, err
	}

	var flags byte
	if msg.Sender != nil {
		flags |= hasSender
	}
	if msg.Target != nil {
		flags |= hasTarget
	}
	if msg.Headers != nil {
		flags |= hasHeaders
	}
	if msg.Body != nil {
		flags |= hasBody
	}

	w.Uint8(byte(msg.MsgType))
	w.Uint8(flags)
	w.CorrelationID(msg.ID)

	if msg.Sender != nil {
		w.ActivationAddress(msg.Sender)
	}
	if msg.Target != nil {
		w.ActivationAddress(msg.Target)
	}
	if msg.Headers != nil {
		w.SerializeInner(msg.Headers, TypeStringObjDict)
	}

	if msg.Body != nil {
		bodySink := buffer.NewSink(s.pool)
		defer bodySink.Release()

		// the body starts after its int32 length
		nested := ctx.CreateNested(ctx.CurrentOffset()+4, bodySink)
		bw, err := NewContextWriter(nested)
		if err != nil {
			return nil, err
		}
		bw.SerializeInner(msg.Body, TypeObject)
		if err := bw.Error(); err != nil {
			return nil, errors.Wrap(err, "serializing body")
		}

		w.Int32(int32(bodySink.Len()))
		w.Attach(bodySink.Snapshot())
	}

	if err := w.Error(); err != nil {
		return nil, errors.Wrapf(err, "serializing %s message", msg.MsgType)
	}

	data := sink.Snapshot().Bytes()
	s.stats.mark(len(data))
	return data, nil
}

func (s *tokenSerializerImpl) Stats() Stats {
	return s.stats.snapshot()
}
