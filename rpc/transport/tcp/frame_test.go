package tcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"testing/iotest"
	"time"

	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

func TestReadFromPlainReader(t *testing.T) {
	for _, n := range []int{1, 7, 8, 9, 16, 20, 64, 1000} {
		msg := seq(n)
		got, err := Read(bytes.NewReader(msg), common.ReadChunkSize, common.DefaultReadGrace)
		require.NoError(t, err, "length %d", n)
		assert.Equal(t, msg, got, "length %d", n)
	}
}

func TestReadEmptyStreamIsEOF(t *testing.T) {
	_, err := Read(bytes.NewReader(nil), common.ReadChunkSize, common.DefaultReadGrace)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadStopsAtShortChunk(t *testing.T) {
	// a reader returning one byte per call ends the message after the first byte
	got, err := Read(iotest.OneByteReader(bytes.NewReader([]byte("abcdef"))), common.ReadChunkSize, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)
}

func TestReadInvalidChunkSize(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("x")), 0, 0)
	assert.Error(t, err)
}

func TestReadPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Read(iotest.ErrReader(boom), common.ReadChunkSize, 0)
	assert.ErrorIs(t, err, boom)
}

func TestReadOverPipe(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	// lengths that are multiples of the chunk size rely on the grace period
	for _, n := range []int{3, 8, 16, 17, 40, 256} {
		msg := seq(n)
		go func() {
			_ = Write(client, msg)
		}()

		got, err := Read(server, common.ReadChunkSize, 20*time.Millisecond)
		require.NoError(t, err, "length %d", n)
		assert.Equal(t, msg, got, "length %d", n)
	}
}

func TestReadIdleConnectionHasNoDeadline(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = Write(client, []byte("late"))
		_ = client.Close()
	}()

	got, err := Read(server, common.ReadChunkSize, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte("late"), got)

	_, err = Read(server, common.ReadChunkSize, 10*time.Millisecond)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadOverTCP(t *testing.T) {
	listener, err := Listen(&common.Settings{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := Dial(context.Background(), listener.Addr().String(), time.Second)
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	defer server.Close()
	require.NoError(t, UpgradeConnection(server, &common.Settings{TCP: common.TCPConf{TCPNoDelay: true, TCPKeepAliveSec: 30}}))

	for _, n := range []int{5, 24, 1025} {
		msg := seq(n)
		require.NoError(t, Write(client, msg))
		got, err := Read(server, common.ReadChunkSize, 50*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, msg, got)

		// and back with the client chunk size
		require.NoError(t, Write(server, msg))
		got, err = Read(client, common.ClientReadChunkSize, 50*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, msg, got)
	}
}

func TestWriteFlushesBufferedWriters(t *testing.T) {
	var out bytes.Buffer
	w := bufio.NewWriter(&out)

	require.NoError(t, Write(w, []byte("buffered")))
	assert.Equal(t, "buffered", out.String())
}

func TestWriteReportsErrors(t *testing.T) {
	server, client := net.Pipe()
	_ = server.Close()
	defer client.Close()

	assert.Error(t, Write(client, []byte("x")))
}

func TestListenFailsOnUsedAddress(t *testing.T) {
	listener, err := Listen(&common.Settings{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	defer listener.Close()

	_, err = Listen(&common.Settings{Address: listener.Addr().String()})
	assert.Error(t, err)
}
