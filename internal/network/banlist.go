package network

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/runziggurat/zcash/internal/ulogger"
)

// BanEntry records how long a single IP or subnet stays banned.
type BanEntry struct {
	ExpiresAt time.Time
	Subnet    *net.IPNet
}

// BanList tracks addresses the crawler refuses to dial or accept from —
// peers that sent malformed frames, violated the handshake policy enough
// times, or were banned by an operator. Entries expire on their own; IsBanned
// prunes anything past its expiry as it checks.
type BanList struct {
	log ulogger.Logger

	mu      sync.Mutex
	entries map[string]BanEntry
}

// NewBanList returns an empty BanList.
func NewBanList(log ulogger.Logger) *BanList {
	return &BanList{log: log, entries: make(map[string]BanEntry)}
}

// Ban adds ipOrSubnet to the list until expiresAt. ipOrSubnet may be a bare
// IP or CIDR notation; a bare IP bans that single address. Banning an
// address already on the list refreshes its expiry.
func (b *BanList) Ban(ipOrSubnet string, expiresAt time.Time) error {
	key, subnet, err := normalizeBanKey(ipOrSubnet)
	if err != nil {
		if b.log != nil {
			b.log.Errorf("banlist: %v", err)
		}
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = BanEntry{ExpiresAt: expiresAt, Subnet: subnet}
	return nil
}

// Unban removes ipOrSubnet from the list, if present.
func (b *BanList) Unban(ipOrSubnet string) error {
	key, _, err := normalizeBanKey(ipOrSubnet)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}

// IsBanned reports whether host — a bare IP, with any port already
// stripped — falls under an active ban, either a direct match or
// containment in a banned subnet. Expired entries are pruned as found.
func (b *BanList) IsBanned(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	for key, entry := range b.entries {
		if now.After(entry.ExpiresAt) {
			delete(b.entries, key)
			continue
		}
		if key == host {
			return true
		}
		if entry.Subnet != nil && entry.Subnet.Contains(ip) {
			return true
		}
	}
	return false
}

// IsBannedAddr is IsBanned for a "host:port" string, stripping the port
// first the way callers holding a dial target usually have it.
func (b *BanList) IsBannedAddr(hostport string) bool {
	host := hostport
	if strings.Contains(hostport, ":") {
		if h, _, err := net.SplitHostPort(hostport); err == nil {
			host = h
		}
	}
	return b.IsBanned(host)
}

func normalizeBanKey(ipOrSubnet string) (string, *net.IPNet, error) {
	if strings.Contains(ipOrSubnet, "/") {
		_, subnet, err := net.ParseCIDR(ipOrSubnet)
		if err != nil {
			return "", nil, err
		}
		return subnet.String(), subnet, nil
	}

	ip := net.ParseIP(ipOrSubnet)
	if ip == nil {
		return "", nil, &net.ParseError{Type: "IP address", Text: ipOrSubnet}
	}
	return ipOrSubnet, nil, nil
}
