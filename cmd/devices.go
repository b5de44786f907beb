package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/soocke/facegate-go/app/kiosk"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the configured capture devices",
	RunE:  runDevices,
}

func init() {
	devicesCmd.Flags().Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	camera := kiosk.NewCamera(cfg, logger)
	defer camera.Close()
	devs := camera.Devices()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(devs)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tDEFAULT")
	for _, d := range devs {
		def := ""
		if d.ID == cfg.DeviceID {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Label, def)
	}
	return w.Flush()
}
