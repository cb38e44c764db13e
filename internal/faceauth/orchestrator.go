package faceauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/suraksha/internal/ai"
	"github.com/kozaktomas/suraksha/internal/constants"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/facematch"
	"go.uber.org/zap"
)

// Orchestrator runs the scan state machine for one browser flow.
//
// All fields are guarded by mu. Oracle and store calls are made without
// holding it; every step that resumes after such a call first checks that
// its epoch is still current, so results that arrive after a view change
// are dropped.
type Orchestrator struct {
	cfg      Config
	settings Settings
	sched    Scheduler
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	view    View
	state   State
	message string
	err     error
	errMsg  string
	seq     uint64

	// epoch changes whenever the active view is left. ctx belongs to the
	// current epoch and is cancelled with it.
	epoch  uint64
	ctx    context.Context
	cancel context.CancelFunc

	stream       Stream
	timer        Timer
	timerGen     uint64
	frameRetries int

	// Retained by a successful scan for the registration form.
	frame      []byte
	descriptor string

	completed bool
	profile   *database.UserProfile
	closed    bool
}

// New creates an orchestrator. Call Start or SetView to begin.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Camera == nil:
		return nil, errors.New("camera is required")
	case cfg.Oracle == nil:
		return nil, errors.New("oracle is required")
	case cfg.Profiles == nil:
		return nil, errors.New("profile store is required")
	case cfg.Identities == nil:
		return nil, errors.New("identity provider is required")
	case cfg.Sessions == nil:
		return nil, errors.New("session store is required")
	}

	o := &Orchestrator{
		cfg:      cfg,
		settings: cfg.Settings.withDefaults(),
		sched:    cfg.Scheduler,
		log:      cfg.Logger,
		now:      cfg.Now,
		state:    StateIdle,
		message:  MsgReady,
	}
	if o.sched == nil {
		o.sched = realScheduler{}
	}
	if o.log == nil {
		o.log = zap.L()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// Start enters the scan entry view.
func (o *Orchestrator) Start() error {
	return o.SetView(ViewScanEntry)
}

// SetView switches the active view. Leaving a view releases the camera,
// cancels any pending timer and invalidates in-flight oracle calls.
func (o *Orchestrator) SetView(v View) error {
	return o.changeView(v, nil)
}

// Status returns the current status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot()
}

// Close tears the flow down. It is safe to call more than once.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.leaveView()
	o.frame, o.descriptor = nil, ""
}

// changeView switches to v. When epoch is set the switch only happens if
// that epoch is still current.
func (o *Orchestrator) changeView(v View, epoch *uint64) error {
	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return ErrClosed
	case o.completed:
		o.mu.Unlock()
		return ErrCompleted
	case epoch != nil && *epoch != o.epoch:
		o.mu.Unlock()
		return nil
	}

	o.enterView(v)
	current, ctx := o.epoch, o.ctx
	o.log.Debug("view changed", zap.String("view", string(v)))
	o.unlockAndNotify()

	if !v.RequiresCamera() {
		return nil
	}

	stream, err := o.cfg.Camera.Open(ctx)

	o.mu.Lock()
	if current != o.epoch || o.closed {
		o.mu.Unlock()
		if err == nil {
			stream.Close()
		}
		return nil
	}
	if err != nil {
		o.fail(fmt.Errorf("%w: %w", ErrCameraUnavailable, err), MsgCameraRequired)
		o.unlockAndNotify()
		return nil
	}

	o.stream = stream
	o.frameRetries = 0
	// In face-signup a retained frame and descriptor mean enrollment is
	// pending; scanning again would only produce a second descriptor.
	if v != ViewFaceSignup || o.frame == nil || o.descriptor == "" {
		o.state = StateDetecting
		o.message = MsgDetecting
		o.schedule(o.settings.CaptureDelay, o.capture)
	}
	o.unlockAndNotify()
	return nil
}

// enterView must be called with mu held.
func (o *Orchestrator) enterView(v View) {
	o.leaveView()
	o.view = v
	o.state = StateIdle
	o.message = MsgReady
	o.err, o.errMsg = nil, ""
	o.ctx, o.cancel = context.WithCancel(context.Background())
}

// leaveView must be called with mu held.
func (o *Orchestrator) leaveView() {
	o.epoch++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.stopTimer()
	if o.stream != nil {
		o.stream.Close()
		o.stream = nil
	}
}

// schedule replaces any pending timer with one that runs fn after d.
// Must be called with mu held.
func (o *Orchestrator) schedule(d time.Duration, fn func(epoch uint64)) {
	o.stopTimer()
	gen, epoch := o.timerGen, o.epoch
	o.timer = o.sched.AfterFunc(d, func() {
		o.mu.Lock()
		if gen != o.timerGen || epoch != o.epoch || o.closed {
			o.mu.Unlock()
			return
		}
		o.timer = nil
		o.mu.Unlock()
		fn(epoch)
	})
}

func (o *Orchestrator) stopTimer() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.timerGen++
}

func (o *Orchestrator) current(epoch uint64) bool {
	return epoch == o.epoch && !o.closed && !o.completed
}

// capture takes one frame and runs the scan on it.
func (o *Orchestrator) capture(epoch uint64) {
	o.mu.Lock()
	if !o.current(epoch) || o.stream == nil || o.state == StateVerifying || o.state == StateMatching {
		o.mu.Unlock()
		return
	}

	o.message = MsgCapturing
	frame := o.stream.Snapshot()
	if len(frame) == 0 {
		o.frameRetries++
		if o.frameRetries >= o.settings.MaxFrameRetries {
			o.fail(fmt.Errorf("%w: no frame after %d attempts", ErrCameraUnavailable, o.frameRetries), MsgNoFrames)
		} else {
			o.state = StateDetecting
			o.message = MsgDetecting
			o.schedule(o.settings.CaptureDelay, o.capture)
		}
		o.unlockAndNotify()
		return
	}

	o.frameRetries = 0
	o.state = StateVerifying
	o.message = MsgVerifying
	ctx := o.ctx
	o.unlockAndNotify()

	o.scan(ctx, epoch, frame)
}

func (o *Orchestrator) scan(ctx context.Context, epoch uint64, frame []byte) {
	verdict, err := o.cfg.Oracle.VerifyFace(ctx, frame)

	o.mu.Lock()
	if !o.current(epoch) {
		o.mu.Unlock()
		return
	}
	switch {
	case err != nil:
		o.scanFailed(err)
		o.unlockAndNotify()
		return
	case !verdict.FaceDetected:
		o.state = StateDetecting
		o.message = MsgNoFace
		o.schedule(o.settings.CaptureDelay, o.capture)
		o.unlockAndNotify()
		return
	case !verdict.Eligible:
		o.deny()
		o.unlockAndNotify()
		return
	}

	o.frame = frame
	o.state = StateMatching
	o.message = MsgSearching
	o.unlockAndNotify()

	profiles, err := o.cfg.Profiles.ListProfiles(ctx)
	if err != nil {
		o.scanError(epoch, fmt.Errorf("list profiles: %w", err))
		return
	}
	if len(profiles) == 0 {
		o.enroll(ctx, epoch, frame, MsgFirstUser)
		return
	}

	result, err := facematch.Sweep(ctx, profiles, func(p database.UserProfile) string {
		return p.Descriptor()
	}, o.settings.MatchBudget, func(ctx context.Context, descriptor string) (float64, error) {
		cmp, err := o.cfg.Oracle.CompareFace(ctx, frame, descriptor)
		if err != nil {
			return 0, err
		}
		o.log.Debug("face comparison",
			zap.Float64("confidence", cmp.Confidence),
			zap.Bool("oracle_match", cmp.Match),
			zap.String("reasoning", cmp.Reasoning))
		return cmp.Confidence, nil
	})
	if err != nil {
		o.scanError(epoch, err)
		return
	}
	if result.BudgetExhausted {
		o.log.Info("match budget exhausted, remaining profiles need manual login",
			zap.Int("attempts", result.Attempts),
			zap.Int("profiles", len(profiles)))
	}

	if !result.Matched {
		o.enroll(ctx, epoch, frame, MsgNewUser)
		return
	}

	o.mu.Lock()
	if !o.current(epoch) {
		o.mu.Unlock()
		return
	}
	profile := result.Match
	o.state = StateSuccess
	o.message = fmt.Sprintf("Welcome back, %s! (%.0f%% match)", profile.Name, result.Confidence)
	o.schedule(o.settings.DisplayDelay, func(epoch uint64) {
		if err := o.finish(context.Background(), &profile, &epoch); err != nil {
			o.log.Warn("face login completion failed", zap.Error(err))
		}
	})
	o.unlockAndNotify()
}

// enroll produces the descriptor for a face no profile matched and moves the
// user to the registration form.
func (o *Orchestrator) enroll(ctx context.Context, epoch uint64, frame []byte, msg string) {
	o.mu.Lock()
	if !o.current(epoch) {
		o.mu.Unlock()
		return
	}
	o.state = StateSuccess
	o.message = msg
	o.unlockAndNotify()

	descriptor, err := o.cfg.Oracle.DescribeFace(ctx, frame)
	if err != nil {
		o.scanError(epoch, fmt.Errorf("describe face: %w", err))
		return
	}

	o.mu.Lock()
	if !o.current(epoch) {
		o.mu.Unlock()
		return
	}
	o.descriptor = descriptor
	o.schedule(o.settings.DisplayDelay, func(epoch uint64) {
		if err := o.changeView(ViewFaceSignup, &epoch); err != nil {
			o.log.Debug("enrollment view switch skipped", zap.Error(err))
		}
	})
	o.unlockAndNotify()
}

func (o *Orchestrator) scanError(epoch uint64, err error) {
	o.mu.Lock()
	if !o.current(epoch) {
		o.mu.Unlock()
		return
	}
	o.scanFailed(err)
	o.unlockAndNotify()
}

// scanFailed must be called with mu held. Rate limits stop automation;
// anything else is retried after RetryDelay.
func (o *Orchestrator) scanFailed(err error) {
	if ai.IsRateLimit(err) {
		o.log.Warn("oracle rate limited", zap.Error(err))
		o.fail(fmt.Errorf("%w: %w", ErrRateLimited, err), MsgRateLimited)
		return
	}
	o.log.Warn("face scan failed, retrying", zap.Error(err), zap.Duration("delay", o.settings.RetryDelay))
	o.err = fmt.Errorf("%w: %w", ErrOracleFailure, err)
	o.state = StateDetecting
	o.message = MsgRetrying
	o.schedule(o.settings.RetryDelay, o.capture)
}

// fail must be called with mu held.
func (o *Orchestrator) fail(err error, msg string) {
	o.stopTimer()
	o.state = StateFailed
	o.err = err
	o.errMsg = msg
}

// deny must be called with mu held.
func (o *Orchestrator) deny() {
	if o.closed {
		return
	}
	o.enterView(ViewDenied)
	o.frame, o.descriptor = nil, ""
	o.state = StateFailed
	o.err = ErrEligibilityDenied
	o.errMsg = MsgAccessRestricted
	o.log.Info("eligibility gate denied access")
}

// finish persists the session and reports success. When epoch is set the
// flow only completes if that epoch is still current.
func (o *Orchestrator) finish(ctx context.Context, profile *database.UserProfile, epoch *uint64) error {
	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return ErrClosed
	case o.completed:
		o.mu.Unlock()
		return ErrCompleted
	case epoch != nil && *epoch != o.epoch:
		o.mu.Unlock()
		return nil
	}
	o.completed = true
	o.leaveView()
	o.mu.Unlock()

	if err := o.cfg.Sessions.SetSession(ctx, constants.SessionKey, profile.ID); err != nil {
		o.mu.Lock()
		o.completed = false
		err = fmt.Errorf("%w: %w", ErrSession, err)
		o.fail(err, MsgSessionFailed)
		o.unlockAndNotify()
		return err
	}

	o.mu.Lock()
	o.profile = profile
	o.state = StateSuccess
	o.err, o.errMsg = nil, ""
	o.log.Info("flow authenticated", zap.String("profile_id", profile.ID))
	o.unlockAndNotify()

	if o.cfg.OnSuccess != nil {
		o.cfg.OnSuccess(profile)
	}
	return nil
}

// snapshot must be called with mu held.
func (o *Orchestrator) snapshot() Status {
	st := Status{
		Seq:         o.seq,
		View:        o.view,
		State:       o.state,
		Message:     o.message,
		Error:       o.errMsg,
		Err:         o.err,
		HasFaceData: o.frame != nil && o.descriptor != "",
		Completed:   o.completed && o.profile != nil,
	}
	if o.profile != nil {
		st.ProfileID = o.profile.ID
		st.ProfileName = o.profile.Name
	}
	return st
}

// unlockAndNotify releases mu and publishes the new status.
func (o *Orchestrator) unlockAndNotify() {
	o.seq++
	st := o.snapshot()
	o.mu.Unlock()
	if o.cfg.OnStatus != nil {
		o.cfg.OnStatus(st)
	}
}
