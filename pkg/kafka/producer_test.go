package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestEncode(t *testing.T) {
	b, err := encode(map[string]string{"symbol": "BTCUSDT"})
	if err != nil || string(b) != `{"symbol":"BTCUSDT"}` {
		t.Fatalf("unexpected %s %v", b, err)
	}
	b, _ = encode("raw")
	if string(b) != "raw" {
		t.Fatalf("string passthrough: %s", b)
	}
}

func TestParseCompression(t *testing.T) {
	if parseCompression("zstd") != kafka.Zstd {
		t.Fatalf("zstd")
	}
	if parseCompression("bogus") != kafka.Snappy {
		t.Fatalf("default should be snappy")
	}
}
