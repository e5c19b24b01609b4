package network_test

import (
	"testing"
	"time"

	"github.com/runziggurat/zcash/internal/network"
	"github.com/runziggurat/zcash/internal/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanList_DirectIPMatch(t *testing.T) {
	bl := network.NewBanList(ulogger.New("test"))
	require.NoError(t, bl.Ban("203.0.113.5", time.Now().Add(time.Hour)))

	assert.True(t, bl.IsBanned("203.0.113.5"))
	assert.False(t, bl.IsBanned("203.0.113.6"))
}

func TestBanList_SubnetMatch(t *testing.T) {
	bl := network.NewBanList(ulogger.New("test"))
	require.NoError(t, bl.Ban("203.0.113.0/24", time.Now().Add(time.Hour)))

	assert.True(t, bl.IsBanned("203.0.113.42"))
	assert.False(t, bl.IsBanned("203.0.114.42"))
}

func TestBanList_ExpiredEntryIsPruned(t *testing.T) {
	bl := network.NewBanList(ulogger.New("test"))
	require.NoError(t, bl.Ban("203.0.113.5", time.Now().Add(-time.Second)))

	assert.False(t, bl.IsBanned("203.0.113.5"))
}

func TestBanList_IsBannedAddrStripsPort(t *testing.T) {
	bl := network.NewBanList(ulogger.New("test"))
	require.NoError(t, bl.Ban("203.0.113.5", time.Now().Add(time.Hour)))

	assert.True(t, bl.IsBannedAddr("203.0.113.5:8233"))
}

func TestBanList_Unban(t *testing.T) {
	bl := network.NewBanList(ulogger.New("test"))
	require.NoError(t, bl.Ban("203.0.113.5", time.Now().Add(time.Hour)))
	require.NoError(t, bl.Unban("203.0.113.5"))

	assert.False(t, bl.IsBanned("203.0.113.5"))
}
