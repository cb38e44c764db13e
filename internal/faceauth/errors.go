package faceauth

import "errors"

var (
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrNoFaceDetected    = errors.New("no face detected")
	ErrEligibilityDenied = errors.New("eligibility denied")
	ErrRateLimited       = errors.New("oracle rate limited")
	ErrOracleFailure     = errors.New("oracle failure")
	ErrMissingFaceData   = errors.New("face data missing")
	ErrAuth              = errors.New("authentication failed")
	ErrProfileWrite      = errors.New("profile write failed")
	ErrSession           = errors.New("session write failed")

	// ErrCompleted is returned for actions on a flow that already authenticated.
	ErrCompleted = errors.New("flow already completed")
	// ErrClosed is returned for actions on a closed flow.
	ErrClosed = errors.New("flow closed")
)

// User-facing status messages.
const (
	MsgReady                 = "Position your face in the frame"
	MsgDetecting             = "Detecting face..."
	MsgCapturing             = "Capturing face..."
	MsgVerifying             = "Verifying identity..."
	MsgNoFace                = "No face detected. Please adjust position."
	MsgSearching             = "Searching for your account..."
	MsgNewUser               = "New user detected! Generating face signature..."
	MsgFirstUser             = "Welcome! Generating face signature..."
	MsgRetrying              = "Scan failed. Retrying..."
	MsgRateLimited           = "API rate limit reached. Please use manual login or wait a moment."
	MsgCameraRequired        = "Camera access required for facial authentication"
	MsgNoFrames              = "Camera is not producing frames"
	MsgAccessRestricted      = "Access restricted: Suraksha is a dedicated space for women's safety."
	MsgAuthFailed            = "Incorrect email or password"
	MsgFaceNotVisible        = "Please ensure your face is visible in the camera for registration."
	MsgSignupRateLimited     = "API rate limit reached. Your account was not created. Please try again in a few moments."
	MsgFaceDataMissing       = "Face data missing. Please scan again."
	MsgUsingFaceData         = "Using captured face data..."
	MsgCapturingRegistration = "Capturing your face for registration..."
	MsgGeneratingSignature   = "Generating face signature..."
	MsgCreatingAccount       = "Creating your account..."
	MsgSignupFailed          = "Signup failed"
	MsgEmailTaken            = "An account with this email already exists."
	MsgInvalidSignup         = "Please enter a valid email and a password of at least 6 characters."
	MsgSessionFailed         = "Could not start your session. Please try again."
)
