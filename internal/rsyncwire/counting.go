package rsyncwire

import "io"

// CountingReader wraps an io.Reader and tallies bytes read, for the
// bytes-read statistic exchanged at the end of a session.
type CountingReader struct {
	R     io.Reader
	Bytes int64
}

func (c *CountingReader) Read(p []byte) (n int, err error) {
	n, err = c.R.Read(p)
	c.Bytes += int64(n)
	return n, err
}

// CountingWriter wraps an io.Writer and tallies bytes written, for the
// bytes-written statistic exchanged at the end of a session.
type CountingWriter struct {
	W     io.Writer
	Bytes int64
}

func (c *CountingWriter) Write(p []byte) (n int, err error) {
	n, err = c.W.Write(p)
	c.Bytes += int64(n)
	return n, err
}

// CounterPair wraps r and w in a CountingReader/CountingWriter pair sharing
// the same underlying connection.
func CounterPair(r io.Reader, w io.Writer) (*CountingReader, *CountingWriter) {
	return &CountingReader{R: r}, &CountingWriter{W: w}
}
