package faceapi

import (
	"context"

	"github.com/soocke/facegate-go/domain/capture"
)

// Verifier judges one frame. Implementations must be safe for concurrent
// use: the detection loop and the manual preview call it independently.
type Verifier interface {
	Verify(ctx context.Context, frame *capture.Frame) (Result, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, frame *capture.Frame) (Result, error)

func (f VerifierFunc) Verify(ctx context.Context, frame *capture.Frame) (Result, error) {
	return f(ctx, frame)
}

// LivenessVerifier is used before a face is registered: it only asks whether
// a face is present. Similarity is pinned to 1.0 and Verified equals Detected.
type LivenessVerifier struct{ Client *Client }

func (v LivenessVerifier) Verify(ctx context.Context, frame *capture.Frame) (Result, error) {
	resp, err := v.Client.DetectPublic(ctx, frame.Base64())
	if err != nil {
		return Result{}, err
	}
	return Result{Detected: resp.Detected, Similarity: 1.0, Verified: resp.Detected}, nil
}

// SimilarityVerifier compares frames with the caller's stored embedding.
type SimilarityVerifier struct{ Client *Client }

func (v SimilarityVerifier) Verify(ctx context.Context, frame *capture.Frame) (Result, error) {
	return v.Client.VerifyPreview(ctx, frame.Base64())
}

// AdminVerifier compares frames with the embedding of a given administrator.
type AdminVerifier struct {
	Client *Client
	UserID string
}

func (v AdminVerifier) Verify(ctx context.Context, frame *capture.Frame) (Result, error) {
	return v.Client.AdminFacePreview(ctx, v.UserID, frame.Base64())
}

var (
	_ Verifier = LivenessVerifier{}
	_ Verifier = SimilarityVerifier{}
	_ Verifier = AdminVerifier{}
)
