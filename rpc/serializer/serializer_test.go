package serializer

import (
	"bytes"
	"errors"
	"net/netip"
	"reflect"
	"sync"
	"testing"

	"github.com/ValentinKolb/dWire/lib/buffer"
	"github.com/ValentinKolb/dWire/lib/ids"
	"github.com/ValentinKolb/dWire/rpc/common"
	"github.com/google/uuid"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IMessageSerializer{
	"Token": func() IMessageSerializer { return NewTokenSerializer(nil, nil) },
	"JSON":  func() IMessageSerializer { return NewJSONSerializer() },
}

// testAddress creates a fully populated activation address
func testAddress(n byte) *ids.ActivationAddress {
	return &ids.ActivationAddress{
		Node:       ids.NewNodeAddress(netip.AddrPortFrom(netip.AddrFrom4([4]byte{10, 0, 0, n}), 11111), 42),
		Grain:      ids.NewGrainID(ids.NewIntegerKey(int64(n), 0x0300000000000000)),
		Activation: &ids.ActivationID{Key: ids.NewGuidKey(uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), 0)},
	}
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []*common.Message {
	request := common.NewRequest(testAddress(1), testAddress(2), &common.InvokeMethodRequest{
		InterfaceID: 17,
		MethodID:    3,
		Arguments:   []any{int32(1), "two", []byte{3}, []any{true, nil}},
	})
	request.Headers = map[string]any{"trace": "abc", "hops": int32(2), "debug": false}

	return []*common.Message{
		// Bare message with just a type and an id
		{MsgType: common.MsgTRequest, ID: 1},

		// Complete request
		request,

		// One way request, no sender
		common.NewOneWayRequest(testAddress(3), &common.InvokeMethodRequest{InterfaceID: 1}),

		// Response
		common.NewResponse(request, "result"),

		// Error response
		common.NewErrorResponse(request, errors.New("test error message")),

		// Target with string key grain
		{
			MsgType: common.MsgTRequest,
			ID:      7,
			Target: &ids.ActivationAddress{
				Node:       ids.NewNodeAddress(netip.MustParseAddrPort("[2001:db8::1]:30000"), 1),
				Grain:      ids.NewGrainID(ids.NewStringKey("user/42", 5)),
				Activation: ids.NewActivationID(),
			},
			Headers: map[string]any{},
		},
	}
}

// TestTokenSerializerRoundTrip tests that messages decode to what was serialized
func TestTokenSerializerRoundTrip(t *testing.T) {
	serializer := NewTokenSerializer(nil, nil)

	for i, msg := range testMessages() {
		data, err := serializer.Serialize(msg)
		if err != nil {
			t.Errorf("Failed to serialize message %d: %v", i, err)
			continue
		}

		result, err := decodeTokenMessage(data)
		if err != nil {
			t.Errorf("Failed to decode message %d: %v", i, err)
			continue
		}

		if !reflect.DeepEqual(*msg, result) {
			t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v", i, *msg, result)
		}
	}
}

// TestTokenSerializerDefaultsAddressParts tests that missing address parts
// are written as zero values
func TestTokenSerializerDefaultsAddressParts(t *testing.T) {
	grain := ids.NewGrainID(ids.NewIntegerKey(9, 0))
	msg := &common.Message{MsgType: common.MsgTOneWay, Target: &ids.ActivationAddress{Grain: grain}}

	data, err := NewTokenSerializer(nil, nil).Serialize(msg)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	result, err := decodeTokenMessage(data)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !result.Target.Node.IsZero() || !result.Target.Activation.IsZero() {
		t.Errorf("Got node %s activation %s, want zero values", result.Target.Node, result.Target.Activation)
	}
	if result.Target.Grain.Key != grain.Key {
		t.Errorf("Grain %s, want %s", result.Target.Grain, grain)
	}
}

// TestTokenSerializerSharedObjects tests that an object in the headers and
// the body is written once
func TestTokenSerializerSharedObjects(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 64)
	shared := &common.Message{
		MsgType: common.MsgTRequest,
		Headers: map[string]any{"payload": payload},
		Body:    &common.InvokeMethodRequest{Arguments: []any{payload}},
	}
	copied := &common.Message{
		MsgType: common.MsgTRequest,
		Headers: map[string]any{"payload": payload},
		Body:    &common.InvokeMethodRequest{Arguments: []any{bytes.Clone(payload)}},
	}

	serializer := NewTokenSerializer(nil, nil)
	sharedData, err := serializer.Serialize(shared)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	copiedData, err := serializer.Serialize(copied)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	// array header(4) + length(4) + payload replaced by reference(5)
	if len(copiedData)-len(sharedData) != 8+len(payload)-5 {
		t.Errorf("Shared payload saved %d bytes", len(copiedData)-len(sharedData))
	}

	result, err := decodeTokenMessage(sharedData)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !reflect.DeepEqual(*shared, result) {
		t.Errorf("Shared message doesn't match after round trip:\nOriginal: %+v\nResult: %+v", *shared, result)
	}
}

// TestTokenSerializerSmallSegments tests messages spanning many segments
func TestTokenSerializerSmallSegments(t *testing.T) {
	pool, err := buffer.NewPool(16, 32)
	if err != nil {
		t.Fatalf("Failed to create pool: %v", err)
	}
	small := NewTokenSerializer(pool, nil)
	large := NewTokenSerializer(nil, nil)

	for i, msg := range testMessages() {
		a, err := small.Serialize(msg)
		if err != nil {
			t.Fatalf("Failed to serialize message %d: %v", i, err)
		}
		b, err := large.Serialize(msg)
		if err != nil {
			t.Fatalf("Failed to serialize message %d: %v", i, err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("Message %d differs between segment sizes", i)
		}
	}
}

func TestTokenSerializerErrors(t *testing.T) {
	testCases := []struct {
		name string
		msg  *common.Message
		want error
	}{
		{"nil message", nil, ErrInvalidValue},
		{
			"sender without grain",
			&common.Message{Sender: &ids.ActivationAddress{Node: ids.ZeroNodeAddress}},
			ErrInvalidValue,
		},
		{
			"body without serializer",
			&common.Message{Body: &common.InvokeMethodRequest{Arguments: []any{point{}}}},
			ErrNoSerializer,
		},
		{
			"header without serializer",
			&common.Message{Headers: map[string]any{"p": &point{}}},
			ErrNoSerializer,
		},
	}

	serializer := NewTokenSerializer(nil, nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
			if data != nil {
				t.Errorf("Got %d bytes with an error", len(data))
			}
		})
	}
}

func TestTokenSerializerDispatcher(t *testing.T) {
	serializer := NewTokenSerializer(nil, newPointRegistry())
	msg := &common.Message{
		MsgType: common.MsgTResponse,
		Body:    &common.Response{Data: point{X: 1, Y: 2}},
	}

	data, err := serializer.Serialize(msg)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if !bytes.Contains(data, []byte(pointKey)) {
		t.Errorf("Body does not name the registered type")
	}
}

// TestJSONRoundTrip tests the json codec with values json keeps intact
func TestJSONRoundTrip(t *testing.T) {
	codec := NewJSONSerializer()
	messages := []*common.Message{
		{MsgType: common.MsgTOneWay, ID: 3},
		{
			MsgType: common.MsgTRequest,
			ID:      4,
			Sender:  testAddress(1),
			Target:  testAddress(2),
			Headers: map[string]any{"trace": "abc", "hops": float64(2)},
		},
	}

	for i, msg := range messages {
		data, err := codec.Serialize(msg)
		if err != nil {
			t.Errorf("Failed to serialize message %d: %v", i, err)
			continue
		}
		var result common.Message
		if err := codec.Deserialize(data, &result); err != nil {
			t.Errorf("Failed to deserialize message %d: %v", i, err)
			continue
		}
		if !reflect.DeepEqual(*msg, result) {
			t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v", i, *msg, result)
		}
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTRequest; msgType <= common.MsgTError; msgType++ {
				if _, err := serializer.Serialize(&common.Message{MsgType: msgType}); err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType, err)
				}
			}
		})
	}
}

func TestSerializerStats(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			messages := testMessages()

			maxSize := 0
			for _, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Fatalf("Failed to serialize: %v", err)
				}
				maxSize = max(maxSize, len(data))
			}

			stats := serializer.Stats()
			if stats.Messages != int64(len(messages)) {
				t.Errorf("Counted %d messages, want %d", stats.Messages, len(messages))
			}
			if stats.MaxSize != int64(maxSize) {
				t.Errorf("Max size %d, want %d", stats.MaxSize, maxSize)
			}
			if stats.MeanSize <= 0 || stats.MeanSize > float64(maxSize) {
				t.Errorf("Mean size %f out of range", stats.MeanSize)
			}
		})
	}
}

// TestSerializerConcurrentUse tests that serializers can be shared between goroutines
func TestSerializerConcurrentUse(t *testing.T) {
	const workers = 8
	msg := testMessages()[1]

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			want, err := serializer.Serialize(msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						got, err := serializer.Serialize(msg)
						if err != nil {
							errs <- err
							return
						}
						if !bytes.Equal(got, want) {
							errs <- errors.New("output differs")
							return
						}
					}
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				t.Error(err)
			}
			if n := serializer.Stats().Messages; n != workers*100+1 {
				t.Errorf("Counted %d messages, want %d", n, workers*100+1)
			}
		})
	}
}
