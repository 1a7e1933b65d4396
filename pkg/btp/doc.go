// Package btp implements the BLE Transport Protocol: the handshake that
// negotiates an ATT MTU and flow-control window over a BLE connection,
// and the fragmentation/reassembly that lets arbitrarily large Matter
// messages cross a link whose characteristic writes are MTU-limited
// (spec §4.8).
//
// Session owns one BLE connection's state. The GATT central
// (commissioner) opens every session with StartHandshake; the
// peripheral (commissionee) replies automatically once it sees the
// handshake request via HandlePacket. pkg/btp/gatt.go adapts a Session
// to a real Bluetooth adapter; tests can satisfy the Link interface
// directly without any BLE hardware.
package btp
