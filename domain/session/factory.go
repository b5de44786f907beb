package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/domain/faceapi"
)

// AdminCredentials are required for admin re-verification sessions.
type AdminCredentials struct {
	UserID   string
	Password string
}

// Factory builds sessions for the three call sites with the verifier and
// committer each one needs.
type Factory struct {
	Logger   *slog.Logger
	Config   *config.Config
	Client   *faceapi.Client
	Camera   Camera
	Notifier Notifier
}

// New returns an unopened session for site.
func (f *Factory) New(ctx context.Context, site string, admin AdminCredentials, autoConfirm bool) (*Controller, error) {
	opts := Options{
		Site:        site,
		DeviceID:    f.Config.DeviceID,
		Policy:      f.Config.Policy(site),
		AutoConfirm: autoConfirm,
	}
	var (
		verifier  faceapi.Verifier
		committer Committer
	)
	switch site {
	case config.SiteRegister:
		verifier = faceapi.LivenessVerifier{Client: f.Client}
		committer = faceapi.RegisterCommitter{Client: f.Client}
	case config.SiteCheckIn:
		has, err := f.Client.HasFaceData(ctx)
		if err != nil && f.Logger != nil {
			f.Logger.Warn("face data lookup failed", "error", err)
		}
		opts.HasFaceData = has
		verifier = faceapi.SimilarityVerifier{Client: f.Client}
		committer = faceapi.CheckInCommitter{Client: f.Client}
	case config.SiteAdmin:
		if admin.UserID == "" {
			return nil, fmt.Errorf("admin session needs a user id")
		}
		opts.HasFaceData = true
		verifier = faceapi.AdminVerifier{Client: f.Client, UserID: admin.UserID}
		committer = faceapi.AdminLoginCommitter{Client: f.Client, UserID: admin.UserID, Password: admin.Password}
	default:
		return nil, fmt.Errorf("unknown site %q", site)
	}
	return NewController(f.Logger, f.Camera, verifier, committer, f.Notifier, opts), nil
}
