package wire

import (
	"net"
	"net/netip"
	"strconv"

	"github.com/runziggurat/zcash/internal/zerrors"
)

// NetworkAddress is a single peer address as carried in Version (no
// timestamp) and Addr (with timestamp) payloads. IPv4 addresses are carried
// as IPv4-mapped IPv6, matching the wire representation; the port is
// big-endian on the wire, unlike every other integer field in the protocol.
type NetworkAddress struct {
	Timestamp    uint32 // valid only when HasTimestamp is true
	HasTimestamp bool
	Services     uint64
	IP           netip.Addr
	Port         uint16
}

// Addr formats the network address as a dialable host:port string.
func (a NetworkAddress) Addr() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

func encodeNetworkAddressBody(buf []byte, a NetworkAddress) []byte {
	buf = appendUint64(buf, a.Services)

	var v6 [16]byte
	if a.IP.Is4() {
		mapped := netip.AddrFrom16(a.IP.As16())
		v6 = mapped.As16()
	} else {
		v6 = a.IP.As16()
	}
	buf = append(buf, v6[:]...)

	// Port is big-endian on the wire.
	buf = append(buf, byte(a.Port>>8), byte(a.Port))
	return buf
}

func decodeNetworkAddressBody(r *reader) (NetworkAddress, error) {
	services, err := r.readUint64()
	if err != nil {
		return NetworkAddress{}, err
	}

	ipBytes, err := r.readBytes(16)
	if err != nil {
		return NetworkAddress{}, err
	}
	var v6 [16]byte
	copy(v6[:], ipBytes)
	ip := netip.AddrFrom16(v6)
	if ip.Is4In6() {
		ip = ip.Unmap()
	}

	hi, err := r.readByte()
	if err != nil {
		return NetworkAddress{}, err
	}
	lo, err := r.readByte()
	if err != nil {
		return NetworkAddress{}, err
	}
	port := uint16(hi)<<8 | uint16(lo)

	return NetworkAddress{Services: services, IP: ip, Port: port}, nil
}

func encodeNetworkAddress(buf []byte, a NetworkAddress) []byte {
	if a.HasTimestamp {
		buf = appendUint32(buf, a.Timestamp)
	}
	return encodeNetworkAddressBody(buf, a)
}

func decodeNetworkAddress(r *reader, withTimestamp bool) (NetworkAddress, error) {
	var ts uint32
	if withTimestamp {
		var err error
		ts, err = r.readUint32()
		if err != nil {
			return NetworkAddress{}, err
		}
	}

	a, err := decodeNetworkAddressBody(r)
	if err != nil {
		return NetworkAddress{}, err
	}
	a.Timestamp = ts
	a.HasTimestamp = withTimestamp
	return a, nil
}

// NetworkAddressFromString parses a "host:port" string into a NetworkAddress
// carrying only the fields a fresh Addr entry needs.
func NetworkAddressFromString(hostport string, services uint64) (NetworkAddress, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return NetworkAddress{}, zerrors.NewInvalidArgumentError("invalid address %q: %v", hostport, err)
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return NetworkAddress{}, zerrors.NewInvalidArgumentError("invalid host %q: %v", host, err)
		}
		ip, _ = netip.AddrFromSlice(ips[0])
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return NetworkAddress{}, zerrors.NewInvalidArgumentError("invalid port %q: %v", portStr, err)
	}

	return NetworkAddress{Services: services, IP: ip, Port: uint16(port)}, nil
}
