package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/ValentinKolb/dShare/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode answers every request with reply(request) until the test ends
func fakeNode(t *testing.T, reply func(req []byte) []byte) (addr string, requests <-chan []byte) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	reqs := make(chan []byte, 16)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				for {
					req, err := tcp.Read(conn, common.ReadChunkSize, 20*time.Millisecond)
					if err != nil {
						return
					}
					reqs <- req
					if resp := reply(req); resp != nil {
						if err := tcp.Write(conn, resp); err != nil {
							return
						}
					}
				}
			}()
		}
	}()

	return l.Addr().String(), reqs
}

func testClient() *Client {
	return New(Options{DialTimeout: time.Second, ReadGrace: 20 * time.Millisecond})
}

func TestCreateSendsCodeAndStripsStatus(t *testing.T) {
	addr, reqs := fakeNode(t, func([]byte) []byte {
		return append([]byte{common.StatusOK}, "01ARZ3NDEKTSV4RRFFQ69G5FAV"...)
	})

	k, err := testClient().Create(context.Background(), addr, []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", k)
	assert.Equal(t, []byte{0x01, 'd', 'a', 't', 'a'}, <-reqs)
}

func TestRemoteErrorCarriesStatus(t *testing.T) {
	addr, _ := fakeNode(t, func([]byte) []byte { return []byte{1, 1} })

	err := testClient().Remove(context.Background(), addr, "a", "b")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, byte(1), remote.Status)
	assert.Equal(t, common.CmdRemove, remote.Code)
	assert.Equal(t, addr, remote.Addr)
}

func TestRemoveJoinsKeys(t *testing.T) {
	addr, reqs := fakeNode(t, func([]byte) []byte { return []byte{0} })

	require.NoError(t, testClient().Remove(context.Background(), addr, "k1", "k2", "k3"))
	assert.Equal(t, "\x02k1\x00k2\x00k3", string(<-reqs))
}

func TestAggregateKeyPayload(t *testing.T) {
	addr, reqs := fakeNode(t, func([]byte) []byte { return []byte("\x00k:v\x00") })

	body, err := testClient().AggregateKey(context.Background(), addr, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	require.NoError(t, err)
	assert.Equal(t, "k:v\x00", string(body))
	assert.Equal(t, "\x0301ARZ3NDEKTSV4RRFFQ69G5FAV\x00", string(<-reqs))
}

func TestCallHonoursContext(t *testing.T) {
	// the fake never answers, the context deadline closes the session
	addr, _ := fakeNode(t, func([]byte) []byte { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s, err := testClient().Open(ctx, addr)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Call(common.CmdCreate, []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSync(t *testing.T) {
	tests := []struct {
		reply []byte
		want  SyncResult
		err   error
	}{
		{common.ProtoSyncOK, SyncAcknowledged, nil},
		{common.ProtoSyncNA, SyncRestricted, nil},
		{[]byte{0x10, 0x99}, 0, ErrUnexpectedSyncReply},
	}

	for _, tc := range tests {
		addr, reqs := fakeNode(t, func([]byte) []byte { return tc.reply })

		got, err := testClient().Sync(context.Background(), addr)
		assert.Equal(t, common.ProtoSyncReq, <-reqs)
		if tc.err != nil {
			assert.True(t, errors.Is(err, tc.err))
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestDialFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = testClient().Create(context.Background(), addr, []byte("x"))
	assert.Error(t, err)
}

func TestPayloadHelpers(t *testing.T) {
	assert.Equal(t, "k@127.0.0.1:1", Target("k", "127.0.0.1:1"))
	assert.Equal(t, "k", Target("k", ""))
	assert.Equal(t, []byte("a\x00b@x:1"), JoinTargets("a", "b@x:1"))

	entries := ParseEntries([]byte("k1:v1\x00k2:Unknown key\x00k3:\x00"))
	assert.Equal(t, []Entry{
		{Key: "k1", Value: []byte("v1")},
		{Key: "k2", Value: []byte("Unknown key")},
		{Key: "k3", Value: []byte{}},
	}, entries)
}
