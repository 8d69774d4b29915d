package matcher_test

import (
	"bytes"
	"testing"

	"github.com/opensync/grsync/internal/blockset"
	"github.com/opensync/grsync/internal/matcher"
	"github.com/opensync/grsync/internal/rsyncwire"
)

func apply(tokens []matcher.Token, old []byte, bs blockset.BlockSet) []byte {
	var out []byte
	for _, t := range tokens {
		if t.Data != nil {
			out = append(out, t.Data...)
			continue
		}
		off, length := bs.BlockRange(t.BlockIndex)
		out = append(out, old[off:off+int64(length)]...)
	}
	return out
}

// TestRoundTripDelta is the round-trip delta testable property: applying
// the token stream against the receiver's old data reconstructs the
// sender's new data exactly.
func TestRoundTripDelta(t *testing.T) {
	oldData := bytes.Repeat([]byte("0123456789"), 200)
	newData := append([]byte(nil), oldData...)
	newData = append(newData[:50], append([]byte("INSERTED-BYTES-HERE"), newData[50:]...)...)

	bs := blockset.Generate(oldData, 7, 16)
	tokens := matcher.GenerateTokens(newData, bs, 7)
	got := apply(tokens, oldData, bs)
	if !bytes.Equal(got, newData) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(newData))
	}
}

// TestSelfSyncNoLiteral is the self-sync-no-literal testable property: when
// old and new data are identical, the delta should reference every block
// and emit no literal tokens.
func TestSelfSyncNoLiteral(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefghij"), 500)
	bs := blockset.Generate(data, 3, 16)
	tokens := matcher.GenerateTokens(data, bs, 3)

	for _, tok := range tokens {
		if tok.Data != nil {
			t.Fatalf("identical file produced a literal token of %d bytes", len(tok.Data))
		}
	}
	if len(tokens) != len(bs.Blocks) {
		t.Fatalf("got %d tokens, want %d (one per block)", len(tokens), len(bs.Blocks))
	}
}

func TestEmptyOldFileIsAllLiteral(t *testing.T) {
	bs := blockset.Generate(nil, 1, 16)
	newData := []byte("brand new content with no prior blocks to match against")
	tokens := matcher.GenerateTokens(newData, bs, 1)

	var got []byte
	for _, tok := range tokens {
		if tok.Data == nil {
			t.Fatal("unexpected block reference against an empty old file")
		}
		got = append(got, tok.Data...)
	}
	if !bytes.Equal(got, newData) {
		t.Fatal("literal reconstruction of new data failed")
	}
}

func TestWriteDeltaWireRoundTrip(t *testing.T) {
	oldData := bytes.Repeat([]byte("xyz123"), 1000)
	newData := append([]byte(nil), oldData...)
	newData[123] ^= 0xff // one-byte flip

	bs := blockset.Generate(oldData, 55, 16)

	var buf bytes.Buffer
	c := &rsyncwire.Conn{Writer: &buf}
	if err := matcher.WriteDelta(c, newData, bs, 55); err != nil {
		t.Fatal(err)
	}
	c.Reader = &buf

	var reassembled []byte
	for {
		count, data, err := matcher.ReadToken(c)
		if err != nil {
			t.Fatal(err)
		}
		if count == 0 {
			break
		}
		if count > 0 {
			reassembled = append(reassembled, data...)
			continue
		}
		idx := -(count + 1)
		off, length := bs.BlockRange(idx)
		reassembled = append(reassembled, oldData[off:off+int64(length)]...)
	}
	if !bytes.Equal(reassembled, newData) {
		t.Fatal("wire round trip of delta stream failed")
	}
}
