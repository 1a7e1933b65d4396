package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	matterdconfig "github.com/mkniffen/matterd/pkg/config"
	"github.com/mkniffen/matterd/pkg/node"
)

var showPayloadCmd = &cobra.Command{
	Use:   "show-payload",
	Short: "Print the QR code and manual pairing code for the configured device, without starting it",
	RunE:  runShowPayload,
}

func init() {
	matterdconfig.RegisterFlags(showPayloadCmd.Flags())
}

func runShowPayload(cmd *cobra.Command, args []string) error {
	if err := loadConfigFile(cmd); err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := matterdconfig.BindFlags(v, cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	cfg, err := matterdconfig.Load(v)
	if err != nil {
		return err
	}

	n, err := node.New(node.Config{
		Port:          cfg.Port,
		Discriminator: cfg.Discriminator,
		Passcode:      cfg.Passcode,
		DeviceName:    cfg.DeviceName,
		VendorID:      cfg.VendorIDValue(),
		ProductID:     cfg.ProductID,
	})
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}

	qrCode, manualCode, err := n.SetupPayload()
	if err != nil {
		return err
	}
	fmt.Printf("QR Code:     %s\n", qrCode)
	fmt.Printf("Manual Code: %s\n", manualCode)
	return nil
}
