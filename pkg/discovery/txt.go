package discovery

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mkniffen/matterd/pkg/fabric"
)

// TXT record keys (spec §4.12 / Matter spec §4.3.1.4, §4.3.2.5).
const (
	txtKeyDiscriminator     = "D"
	txtKeyCommissioningMode = "CM"
	txtKeyVendorProduct     = "VP"
	txtKeyDeviceName        = "DN"
	txtKeyIdleInterval      = "SII"
	txtKeyActiveInterval    = "SAI"
	txtKeyTCPSupported      = "T"
)

const (
	MaxDeviceNameLength = 32
	MaxDiscriminator    = 0xFFF
)

// CommissionableTXT holds the TXT records advertised under _matterc._udp.
type CommissionableTXT struct {
	Discriminator     uint16
	CommissioningMode CommissioningMode
	VendorID          fabric.VendorID
	ProductID         uint16
	DeviceName        string
	IdleInterval      time.Duration
	ActiveInterval    time.Duration
	TCPSupported      bool
}

func (c *CommissionableTXT) Validate() error {
	if c.Discriminator > MaxDiscriminator {
		return ErrInvalidDiscriminator
	}
	if len(c.DeviceName) > MaxDeviceNameLength {
		return ErrInvalidDeviceName
	}
	return nil
}

// ShortDiscriminator returns the top 4 bits of the 12-bit discriminator,
// used to build the "_S<n>" mDNS subtype for discriminator filtering.
func (c *CommissionableTXT) ShortDiscriminator() uint8 {
	return uint8((c.Discriminator >> 8) & 0xF)
}

func (c *CommissionableTXT) Encode() []string {
	txt := []string{
		fmt.Sprintf("%s=%d", txtKeyDiscriminator, c.Discriminator),
		fmt.Sprintf("%s=%d", txtKeyCommissioningMode, c.CommissioningMode),
	}
	if c.VendorID != 0 || c.ProductID != 0 {
		txt = append(txt, fmt.Sprintf("%s=%d+%d", txtKeyVendorProduct, c.VendorID, c.ProductID))
	}
	if c.DeviceName != "" {
		txt = append(txt, fmt.Sprintf("%s=%s", txtKeyDeviceName, truncate(c.DeviceName, MaxDeviceNameLength)))
	}
	if c.IdleInterval > 0 {
		txt = append(txt, fmt.Sprintf("%s=%d", txtKeyIdleInterval, c.IdleInterval.Milliseconds()))
	}
	if c.ActiveInterval > 0 {
		txt = append(txt, fmt.Sprintf("%s=%d", txtKeyActiveInterval, c.ActiveInterval.Milliseconds()))
	}
	if c.TCPSupported {
		txt = append(txt, fmt.Sprintf("%s=1", txtKeyTCPSupported))
	}
	return txt
}

// OperationalTXT holds the TXT records advertised under _matter._tcp.
type OperationalTXT struct {
	IdleInterval   time.Duration
	ActiveInterval time.Duration
	TCPSupported   bool
}

func (o *OperationalTXT) Encode() []string {
	var txt []string
	if o.IdleInterval > 0 {
		txt = append(txt, fmt.Sprintf("%s=%d", txtKeyIdleInterval, o.IdleInterval.Milliseconds()))
	}
	if o.ActiveInterval > 0 {
		txt = append(txt, fmt.Sprintf("%s=%d", txtKeyActiveInterval, o.ActiveInterval.Milliseconds()))
	}
	if o.TCPSupported {
		txt = append(txt, fmt.Sprintf("%s=1", txtKeyTCPSupported))
	}
	return txt
}

// ParseTXT splits raw "key=value" DNS-SD TXT strings into a map.
func ParseTXT(records []string) map[string]string {
	m := make(map[string]string, len(records))
	for _, r := range records {
		if idx := strings.IndexByte(r, '='); idx > 0 {
			m[r[:idx]] = r[idx+1:]
		}
	}
	return m
}

// ParseCommissionableTXT parses raw TXT records into a CommissionableTXT.
func ParseCommissionableTXT(records []string) (*CommissionableTXT, error) {
	m := ParseTXT(records)
	txt := &CommissionableTXT{}

	if v, ok := m[txtKeyDiscriminator]; ok {
		d, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, ErrInvalidTXTRecord
		}
		if d > MaxDiscriminator {
			return nil, ErrInvalidDiscriminator
		}
		txt.Discriminator = uint16(d)
	}
	if v, ok := m[txtKeyCommissioningMode]; ok {
		cm, err := strconv.ParseInt(v, 10, 8)
		if err != nil {
			return nil, ErrInvalidTXTRecord
		}
		txt.CommissioningMode = CommissioningMode(cm)
	}
	if v, ok := m[txtKeyVendorProduct]; ok {
		if err := parseVendorProduct(v, &txt.VendorID, &txt.ProductID); err != nil {
			return nil, err
		}
	}
	if v, ok := m[txtKeyDeviceName]; ok {
		txt.DeviceName = v
	}
	if v, ok := m[txtKeyIdleInterval]; ok {
		ms, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, ErrInvalidTXTRecord
		}
		txt.IdleInterval = time.Duration(ms) * time.Millisecond
	}
	if v, ok := m[txtKeyActiveInterval]; ok {
		ms, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, ErrInvalidTXTRecord
		}
		txt.ActiveInterval = time.Duration(ms) * time.Millisecond
	}
	if v, ok := m[txtKeyTCPSupported]; ok {
		txt.TCPSupported = v == "1"
	}
	return txt, nil
}

// ParseOperationalTXT parses raw TXT records into an OperationalTXT.
func ParseOperationalTXT(records []string) (*OperationalTXT, error) {
	m := ParseTXT(records)
	txt := &OperationalTXT{}

	if v, ok := m[txtKeyIdleInterval]; ok {
		ms, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, ErrInvalidTXTRecord
		}
		txt.IdleInterval = time.Duration(ms) * time.Millisecond
	}
	if v, ok := m[txtKeyActiveInterval]; ok {
		ms, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, ErrInvalidTXTRecord
		}
		txt.ActiveInterval = time.Duration(ms) * time.Millisecond
	}
	if v, ok := m[txtKeyTCPSupported]; ok {
		txt.TCPSupported = v == "1"
	}
	return txt, nil
}

func parseVendorProduct(s string, vid *fabric.VendorID, pid *uint16) error {
	parts := strings.SplitN(s, "+", 2)
	if len(parts) != 2 {
		return ErrInvalidTXTRecord
	}
	v, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return ErrInvalidTXTRecord
	}
	p, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return ErrInvalidTXTRecord
	}
	*vid, *pid = fabric.VendorID(v), uint16(p)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
