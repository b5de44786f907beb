package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/soocke/facegate-go/app"
	"github.com/soocke/facegate-go/app/kiosk"
	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/session"
)

var kioskCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "Open the kiosk window",
	Long: `Open the Tk kiosk window for one call site. checkin verifies visitors
against their registered face, register enrolls a new face, and admin
verifies the given user before logging in.`,
	RunE: runKiosk,
}

func init() {
	kioskCmd.Flags().String("mode", config.SiteCheckIn, "call site: checkin, register or admin")
	kioskCmd.Flags().String("user", "", "admin user id (admin mode)")
	kioskCmd.Flags().String("password", "", "admin password (admin mode)")
	kioskCmd.Flags().Bool("auto-confirm", false, "submit as soon as the captured frame verifies")
	kioskCmd.Flags().Bool("dark", false, "use the dark theme")
	kioskCmd.Flags().Int("width", 900, "window width")
	kioskCmd.Flags().Int("height", 640, "window height")
	rootCmd.AddCommand(kioskCmd)
}

func runKiosk(cmd *cobra.Command, args []string) error {
	opts, err := kioskOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	dark, _ := cmd.Flags().GetBool("dark")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")

	logger.Info("kiosk starting", "site", opts.Site, "api", cfg.APIBaseURL, "device", cfg.DeviceID, "version", Version)
	title := fmt.Sprintf("Facegate - %s", siteTitle(opts.Site))
	app.NewApp(cmd.Context(), title, width, height, cfg, cfgPath, logger, opts, dark).Start()
	return nil
}

// kioskOptions reads the session flags shared by kiosk and probe.
func kioskOptions(cmd *cobra.Command) (kiosk.Options, error) {
	mode, _ := cmd.Flags().GetString("mode")
	user, _ := cmd.Flags().GetString("user")
	password, _ := cmd.Flags().GetString("password")
	auto, _ := cmd.Flags().GetBool("auto-confirm")
	if !slices.Contains(config.Sites(), mode) {
		return kiosk.Options{}, fmt.Errorf("unknown mode %q (want one of %v)", mode, config.Sites())
	}
	if mode == config.SiteAdmin && user == "" {
		return kiosk.Options{}, fmt.Errorf("admin mode needs --user")
	}
	return kiosk.Options{
		Site:        mode,
		Admin:       session.AdminCredentials{UserID: user, Password: password},
		AutoConfirm: auto,
	}, nil
}

func siteTitle(site string) string {
	switch site {
	case config.SiteRegister:
		return "Register"
	case config.SiteAdmin:
		return "Admin login"
	default:
		return "Check-in"
	}
}
