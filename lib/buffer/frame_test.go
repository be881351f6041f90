package buffer

import (
	"bytes"
	"testing"
)

// TestFrameRoundTrip tests that a multi-segment sequence survives framing
func TestFrameRoundTrip(t *testing.T) {
	s := newTestSink(t, 16, 16)
	payload := bytes.Repeat([]byte("frame"), 13)
	write(t, s, payload)

	var conn bytes.Buffer
	if err := WriteFrame(&conn, 7, 42, s.Snapshot()); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if conn.Len() != frameHeaderSize+len(payload) {
		t.Errorf("Expected %d bytes on the wire, got %d", frameHeaderSize+len(payload), conn.Len())
	}

	streamID, requestID, data, err := ReadFrame(&conn, nil)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if streamID != 7 || requestID != 42 {
		t.Errorf("Unexpected ids: stream %d, request %d", streamID, requestID)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("Payload mismatch")
	}
}

// TestFrameEmpty tests framing of an empty sequence
func TestFrameEmpty(t *testing.T) {
	s := newTestSink(t, 16, 16)

	var conn bytes.Buffer
	if err := WriteFrame(&conn, 1, 2, s.Snapshot()); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	_, _, data, err := ReadFrame(&conn, make([]byte, 64))
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if data == nil || len(data) != 0 {
		t.Errorf("Expected empty non-nil payload, got %v", data)
	}
}

// TestFrameTruncated tests that a short payload is reported
func TestFrameTruncated(t *testing.T) {
	s := newTestSink(t, 16, 16)
	write(t, s, []byte("truncated payload"))

	var conn bytes.Buffer
	if err := WriteFrame(&conn, 1, 1, s.Snapshot()); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	truncated := bytes.NewReader(conn.Bytes()[:conn.Len()-3])
	if _, _, _, err := ReadFrame(truncated, nil); err == nil {
		t.Errorf("Expected an error for a truncated frame")
	}
}
