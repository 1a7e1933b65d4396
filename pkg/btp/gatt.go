package btp

import (
	"fmt"

	"tinygo.org/x/bluetooth"
)

// Service and characteristic UUIDs for Matter's BTP GATT profile
// (spec §6). RX takes writes from the peer; TX carries indications
// back; AdditionalData exposes the device's discriminator/vendor/
// product id to a scanning central that can't read the advertisement
// payload directly.
var (
	ServiceUUID         = bluetooth.NewUUID([16]byte{0x00, 0x00, 0xFF, 0xF6, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB})
	RXCharacteristicUUID = mustParseUUID("18ee2ef5-263d-4559-959f-4f9c429f9d12")
	TXCharacteristicUUID = mustParseUUID("18ee2ef5-263d-4559-959f-4f9c429f9d11")
	AdditionalDataUUID   = mustParseUUID("64630238-8772-45f2-b87d-748a83218f04")
)

func mustParseUUID(s string) bluetooth.UUID {
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic(fmt.Sprintf("btp: invalid UUID literal %q: %v", s, err))
	}
	return u
}

// AdvertisingPayload packs a commissionee's discriminator/vendor/product
// id into the 6-byte manufacturer payload BTP advertises (spec §6):
// discriminator_le16 ‖ vendor_id_le16 ‖ product_id_le16.
func AdvertisingPayload(discriminator uint16, vendorID, productID uint16) []byte {
	buf := make([]byte, 6)
	buf[0] = byte(discriminator)
	buf[1] = byte(discriminator >> 8)
	buf[2] = byte(vendorID)
	buf[3] = byte(vendorID >> 8)
	buf[4] = byte(productID)
	buf[5] = byte(productID >> 8)
	return buf
}

// writeCharLink adapts a GATT characteristic write to the Link
// interface Session fragments over.
type writeCharLink struct {
	write func(data []byte) error
}

func (l *writeCharLink) WritePacket(packet []byte) error {
	return l.write(packet)
}

// PeripheralServer advertises the BTP GATT service and runs a single
// Session for the central that connects to it. A commissionee is normally a
// single-connection peripheral; CHIPoBLE restricts it to one
// commissioner at a time.
type PeripheralServer struct {
	adapter *bluetooth.Adapter
	session *Session
	txChar  bluetooth.Characteristic
}

// NewPeripheralServer configures adapter's GATT service and starts
// advertising discriminator/vendorID/productID. onMessage is called
// with each reassembled message the connected central sends.
func NewPeripheralServer(adapter *bluetooth.Adapter, discriminator, vendorID, productID uint16, onMessage func([]byte)) (*PeripheralServer, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("btp: enabling adapter: %w", err)
	}

	p := &PeripheralServer{adapter: adapter}

	link := &writeCharLink{write: func(data []byte) error {
		_, err := p.txChar.Write(data)
		return err
	}}
	p.session = NewSession(link, RolePeripheral)
	p.session.OnMessage(onMessage)

	var rxChar bluetooth.Characteristic
	err := adapter.AddService(&bluetooth.Service{
		UUID: ServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &rxChar,
				UUID:   RXCharacteristicUUID,
				Flags:  bluetooth.CharacteristicWriteWithoutResponsePermission | bluetooth.CharacteristicWritePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					_ = p.session.HandlePacket(value)
				},
			},
			{
				Handle: &p.txChar,
				UUID:   TXCharacteristicUUID,
				Flags:  bluetooth.CharacteristicIndicatePermission,
			},
			{
				UUID:  AdditionalDataUUID,
				Flags: bluetooth.CharacteristicReadPermission,
				Value: AdvertisingPayload(discriminator, vendorID, productID),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("btp: registering GATT service: %w", err)
	}

	adv := adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    "MATTER",
		ServiceUUIDs: []bluetooth.UUID{ServiceUUID},
		ManufacturerData: []bluetooth.ManufacturerDataElement{
			{CompanyID: uint16(vendorID), Data: AdvertisingPayload(discriminator, vendorID, productID)},
		},
	}); err != nil {
		return nil, fmt.Errorf("btp: configuring advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return nil, fmt.Errorf("btp: starting advertisement: %w", err)
	}

	return p, nil
}

// Session returns the BTP session for the currently connected central.
func (p *PeripheralServer) Session() *Session { return p.session }

// Stop stops advertising.
func (p *PeripheralServer) Stop() error {
	return p.adapter.DefaultAdvertisement().Stop()
}

// CentralClient is the commissioner side: scans for the BTP service,
// connects, discovers the RX/TX characteristics, and drives the BTP
// handshake as RoleCentral.
type CentralClient struct {
	adapter *bluetooth.Adapter
	device  bluetooth.Device
	session *Session
	rxChar  bluetooth.DeviceCharacteristic
}

// Connect scans until it finds a peripheral advertising ServiceUUID,
// connects, discovers characteristics, and starts the BTP handshake.
// onMessage is called with each reassembled message the peripheral
// sends back over TX.
func Connect(adapter *bluetooth.Adapter, onMessage func([]byte)) (*CentralClient, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("btp: enabling adapter: %w", err)
	}

	found := make(chan bluetooth.ScanResult, 1)
	err := adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		if result.HasServiceUUID(ServiceUUID) {
			a.StopScan()
			found <- result
		}
	})
	if err != nil {
		return nil, fmt.Errorf("btp: scanning: %w", err)
	}
	result := <-found

	device, err := adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("btp: connecting: %w", err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{ServiceUUID})
	if err != nil || len(services) == 0 {
		return nil, fmt.Errorf("btp: discovering service: %w", err)
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{RXCharacteristicUUID, TXCharacteristicUUID})
	if err != nil || len(chars) < 2 {
		return nil, fmt.Errorf("btp: discovering characteristics: %w", err)
	}

	c := &CentralClient{adapter: adapter, device: device}

	var rxChar, txChar bluetooth.DeviceCharacteristic
	for _, ch := range chars {
		switch ch.UUID() {
		case RXCharacteristicUUID:
			rxChar = ch
		case TXCharacteristicUUID:
			txChar = ch
		}
	}
	c.rxChar = rxChar

	link := &writeCharLink{write: func(data []byte) error {
		_, err := c.rxChar.WriteWithoutResponse(data)
		return err
	}}
	c.session = NewSession(link, RoleCentral)
	c.session.OnMessage(onMessage)

	if err := txChar.EnableNotifications(func(buf []byte) {
		_ = c.session.HandlePacket(buf)
	}); err != nil {
		return nil, fmt.Errorf("btp: enabling TX notifications: %w", err)
	}

	if err := c.session.StartHandshake(); err != nil {
		return nil, fmt.Errorf("btp: starting handshake: %w", err)
	}

	return c, nil
}

// Session returns the BTP session for this connection.
func (c *CentralClient) Session() *Session { return c.session }

// Close disconnects from the peripheral.
func (c *CentralClient) Close() error {
	return c.device.Disconnect()
}
