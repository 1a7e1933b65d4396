package transport

import (
	"fmt"
	"net"
)

// PeerAddress identifies a remote peer by network address and link kind,
// and doubles as the session table's transport descriptor for BTP/TCP
// sessions (spec §5: closing a link tears down every session bound to it).
type PeerAddress struct {
	Addr net.Addr
	Kind Kind
}

func (p PeerAddress) String() string {
	if p.Addr == nil {
		return fmt.Sprintf("%s:<nil>", p.Kind)
	}
	return fmt.Sprintf("%s:%s", p.Kind, p.Addr.String())
}

func (p PeerAddress) IsValid() bool {
	return p.Kind.IsValid() && p.Addr != nil
}

func NewUDPPeerAddress(addr net.Addr) PeerAddress {
	return PeerAddress{Addr: addr, Kind: KindUDP}
}

func NewTCPPeerAddress(addr net.Addr) PeerAddress {
	return PeerAddress{Addr: addr, Kind: KindTCP}
}

func NewBTPPeerAddress(addr net.Addr) PeerAddress {
	return PeerAddress{Addr: addr, Kind: KindBTP}
}

func UDPAddrFromString(addr string) (PeerAddress, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return PeerAddress{}, err
	}
	return NewUDPPeerAddress(udpAddr), nil
}

func TCPAddrFromString(addr string) (PeerAddress, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return PeerAddress{}, err
	}
	return NewTCPPeerAddress(tcpAddr), nil
}
