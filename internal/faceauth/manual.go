package faceauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/suraksha/internal/ai"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/facematch"
	"go.uber.org/zap"
)

// Login authenticates with email and password. Profiles missing from the
// store are synthesized from the identity.
func (o *Orchestrator) Login(ctx context.Context, email, password string) (*database.UserProfile, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}

	identity, err := o.cfg.Identities.SignIn(ctx, email, password)
	if err != nil {
		if !database.IsAuthError(err) {
			o.log.Warn("sign in failed", zap.Error(err))
		}
		return nil, o.reportError(fmt.Errorf("%w: %w", ErrAuth, err), MsgAuthFailed)
	}

	profile, err := o.cfg.Profiles.GetProfile(ctx, identity.ID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		profile = database.DefaultProfile(identity, o.now())
	case err != nil:
		o.log.Warn("profile lookup failed", zap.String("identity", identity.ID), zap.Error(err))
		return nil, o.reportError(fmt.Errorf("%w: %w", ErrAuth, err), MsgAuthFailed)
	}

	if err := o.finish(ctx, profile, nil); err != nil {
		return nil, err
	}
	return profile, nil
}

// Signup registers a new account. Face data retained from a scan is reused;
// otherwise one fresh frame is taken from the open camera, if any. All oracle
// calls happen before the identity is created.
func (o *Orchestrator) Signup(ctx context.Context, req SignupRequest) (*database.UserProfile, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	frame, descriptor, stream := o.frame, o.descriptor, o.stream
	o.mu.Unlock()

	var face *database.FaceRecord
	switch {
	case frame != nil && descriptor != "":
		o.setMessage(MsgUsingFaceData)
		face = newFaceRecord(descriptor, frame, o.now())
	case stream != nil:
		o.setMessage(MsgCapturingRegistration)
		if snap := stream.Snapshot(); len(snap) > 0 {
			var err error
			if face, err = o.captureForSignup(ctx, snap); err != nil {
				return nil, err
			}
		}
	}

	return o.createAccount(ctx, req, face)
}

// FaceSignup registers a new account with the face data retained by the
// last scan. Without it nothing is created.
func (o *Orchestrator) FaceSignup(ctx context.Context, req SignupRequest) (*database.UserProfile, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	frame, descriptor := o.frame, o.descriptor
	o.mu.Unlock()

	if frame == nil || descriptor == "" {
		return nil, o.reportError(ErrMissingFaceData, MsgFaceDataMissing)
	}
	return o.createAccount(ctx, req, newFaceRecord(descriptor, frame, o.now()))
}

func (o *Orchestrator) captureForSignup(ctx context.Context, frame []byte) (*database.FaceRecord, error) {
	verdict, err := o.cfg.Oracle.VerifyFace(ctx, frame)
	if err != nil {
		return nil, o.signupOracleError(err)
	}
	if !verdict.FaceDetected {
		return nil, o.reportError(ErrNoFaceDetected, MsgFaceNotVisible)
	}
	if !verdict.Eligible {
		o.mu.Lock()
		o.deny()
		o.unlockAndNotify()
		return nil, ErrEligibilityDenied
	}

	o.setMessage(MsgGeneratingSignature)
	descriptor, err := o.cfg.Oracle.DescribeFace(ctx, frame)
	if err != nil {
		return nil, o.signupOracleError(err)
	}
	return newFaceRecord(descriptor, frame, o.now()), nil
}

func (o *Orchestrator) createAccount(ctx context.Context, req SignupRequest, face *database.FaceRecord) (*database.UserProfile, error) {
	o.setMessage(MsgCreatingAccount)

	identity, err := o.cfg.Identities.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return nil, o.reportError(fmt.Errorf("%w: %w", ErrAuth, err), signupMessage(err))
	}

	name := facematch.CleanDisplayName(req.Name)
	if name == "" {
		name = facematch.NameFromEmail(identity.Email)
	}
	now := o.now()
	profile := &database.UserProfile{
		ID:         identity.ID,
		Name:       name,
		Email:      identity.Email,
		Eligible:   true,
		Status:     database.StatusVerified,
		VerifiedAt: now,
		CreatedAt:  now,
		Face:       face,
	}

	if err := o.cfg.Profiles.SaveProfile(ctx, profile); err != nil {
		// The identity exists without a profile now. It is not rolled back.
		o.log.Error("profile write failed after identity creation",
			zap.String("identity", identity.ID), zap.Error(err))
		return nil, o.reportError(fmt.Errorf("%w: %w", ErrProfileWrite, err), MsgSignupFailed)
	}

	if err := o.finish(ctx, profile, nil); err != nil {
		return nil, err
	}
	return profile, nil
}

func (o *Orchestrator) signupOracleError(err error) error {
	if ai.IsRateLimit(err) {
		return o.reportError(fmt.Errorf("%w: %w", ErrRateLimited, err), MsgSignupRateLimited)
	}
	o.log.Warn("signup face capture failed", zap.Error(err))
	return o.reportError(fmt.Errorf("%w: %w", ErrOracleFailure, err), MsgSignupFailed)
}

func signupMessage(err error) string {
	switch {
	case errors.Is(err, database.ErrEmailTaken):
		return MsgEmailTaken
	case errors.Is(err, database.ErrInvalidInput):
		return MsgInvalidSignup
	}
	return MsgSignupFailed
}

func newFaceRecord(descriptor string, frame []byte, now time.Time) *database.FaceRecord {
	return &database.FaceRecord{
		Descriptor:    descriptor,
		CapturedImage: frame,
		RegisteredAt:  now,
		Confidence:    100,
	}
}

// begin clears the previous error before a manual action.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.closed:
		return ErrClosed
	case o.completed:
		return ErrCompleted
	}
	o.err, o.errMsg = nil, ""
	return nil
}

func (o *Orchestrator) setMessage(msg string) {
	o.mu.Lock()
	o.message = msg
	o.unlockAndNotify()
}

// reportError publishes err with a user-facing message and returns err.
func (o *Orchestrator) reportError(err error, msg string) error {
	o.mu.Lock()
	o.err = err
	o.errMsg = msg
	o.unlockAndNotify()
	return err
}
