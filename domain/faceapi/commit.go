package faceapi

import (
	"context"
	"errors"

	"github.com/soocke/facegate-go/domain/capture"
)

// RegisterCommitter stores a confirmed frame as the user's reference face.
type RegisterCommitter struct{ Client *Client }

func (c RegisterCommitter) Commit(ctx context.Context, frame *capture.Frame) error {
	return c.Client.RegisterFace(ctx, frame.Base64())
}

// CheckInCommitter records an access event for a confirmed frame.
type CheckInCommitter struct{ Client *Client }

func (c CheckInCommitter) Commit(ctx context.Context, frame *capture.Frame) error {
	resp, err := c.Client.CheckIn(ctx, frame.Base64())
	if err != nil {
		return err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "check-in rejected"
		}
		return &APIError{Status: 200, Detail: msg}
	}
	return nil
}

// AdminLoginCommitter logs an administrator in with credentials plus the
// confirmed frame. On success the issued token is installed on the client.
type AdminLoginCommitter struct {
	Client   *Client
	UserID   string
	Password string
}

func (c AdminLoginCommitter) Commit(ctx context.Context, frame *capture.Frame) error {
	resp, err := c.Client.AdminLogin(ctx, c.UserID, c.Password, frame.Base64())
	if err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return errors.New("login response carried no token")
	}
	c.Client.SetToken(resp.AccessToken)
	return nil
}
