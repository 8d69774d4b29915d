package rsyncstats_test

import (
	"bytes"
	"testing"

	"github.com/opensync/grsync/internal/rsyncstats"
	"github.com/opensync/grsync/internal/rsyncwire"
)

func TestStatsRoundTrip(t *testing.T) {
	want := rsyncstats.TransferStats{Read: 123, Written: 456, Size: 789}

	var buf bytes.Buffer
	c := &rsyncwire.Conn{Writer: &buf}
	if err := want.Send(c); err != nil {
		t.Fatal(err)
	}
	c.Reader = &buf
	got, err := rsyncstats.Recv(c)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
