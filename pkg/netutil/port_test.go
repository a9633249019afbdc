package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAvailablePort_SkipsBoundPort(t *testing.T) {
	lis, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer lis.Close()
	busy := lis.Addr().(*net.TCPAddr).Port

	port := FindAvailablePort(busy, "test")

	assert.NotEqual(t, busy, port)
	assert.True(t, port > busy && port <= busy+maxPortAttempts, "port %d", port)
}
