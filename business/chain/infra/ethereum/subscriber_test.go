package ethereum

import (
	"context"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/flashcycle/flashcycle/internal/logger"
)

func testSubscriber(t *testing.T) *Subscriber {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	sub, err := NewSubscriber(DefaultSubscriberConfig(""), nil, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sub
}

func testHeader(number uint64) *types.Header {
	return &types.Header{
		Number: new(big.Int).SetUint64(number),
		Time:   uint64(time.Now().Unix()),
	}
}

func TestEmitHeader_DropsStaleHeights(t *testing.T) {
	sub := testSubscriber(t)
	ctx := context.Background()

	sub.emitHeader(ctx, testHeader(100), false)
	sub.emitHeader(ctx, testHeader(100), false) // websocket replay after reconnect
	sub.emitHeader(ctx, testHeader(99), true)   // poller racing behind the stream
	sub.emitHeader(ctx, testHeader(101), false)

	var got []uint64
	for len(sub.blocks) > 0 {
		got = append(got, (<-sub.blocks).Number)
	}

	want := []uint64{100, 101}
	if len(got) != len(want) {
		t.Fatalf("emitted blocks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("block[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestEmitHeader_TracksLastBlock(t *testing.T) {
	sub := testSubscriber(t)

	sub.emitHeader(context.Background(), testHeader(42), true)

	if got := sub.lastBlock.Load(); got != 42 {
		t.Errorf("lastBlock = %d, want 42", got)
	}
}
