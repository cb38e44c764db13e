package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kozaktomas/suraksha/internal/config"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/faceauth"
	"github.com/kozaktomas/suraksha/internal/web/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanCmd = &cobra.Command{
	Use:   "scan <image>...",
	Short: "Run a face scan against the stored profiles",
	Long: `Run the face authentication flow with image files standing in for the
camera. Frames are consumed one per capture attempt.

A matched face logs in and prints a session token. An unknown face is
enrolled when --name, --email and --password are given.

Examples:
  # Log in with a photo
  suraksha scan selfie.jpg

  # Register a new face
  suraksha scan --name "Asha Rao" --email asha@example.com --password s3cret! selfie.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("name", "", "Name for enrollment of an unknown face")
	scanCmd.Flags().String("email", "", "Email for enrollment of an unknown face")
	scanCmd.Flags().String("password", "", "Password for enrollment of an unknown face")
	scanCmd.Flags().Duration("timeout", 5*time.Minute, "Give up after this long")
}

// scanWatcher records status changes and signals once the flow stops
// needing input from the scan loop.
type scanWatcher struct {
	once sync.Once
	done chan struct{}

	mu   sync.Mutex
	last faceauth.Status
}

func (w *scanWatcher) observe(st faceauth.Status) {
	w.mu.Lock()
	w.last = st
	w.mu.Unlock()

	fmt.Printf("  [%s/%s] %s\n", st.View, st.State, st.Message)
	if scanSettled(st) {
		w.once.Do(func() { close(w.done) })
	}
}

func (w *scanWatcher) status() faceauth.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func scanSettled(st faceauth.Status) bool {
	switch {
	case st.Completed, st.State == faceauth.StateFailed, st.View == faceauth.ViewDenied:
		return true
	case st.View == faceauth.ViewFaceSignup && st.HasFaceData:
		return true
	}
	return false
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	signup := faceauth.SignupRequest{
		Name:     mustGetString(cmd, "name"),
		Email:    mustGetString(cmd, "email"),
		Password: mustGetString(cmd, "password"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), mustGetDuration(cmd, "timeout"))
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	camera, err := faceauth.NewFileCamera(args...)
	if err != nil {
		return err
	}
	oracle, err := newOracle(ctx, cfg)
	if err != nil {
		return err
	}
	defer printUsage(oracle)

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackends()

	sessions := middleware.NewSessionManager(cfg.Web.SessionSecret, b.sessions, cfg.Web.SecureCookies)
	var (
		sessionMu sync.Mutex
		session   *database.Session
	)

	watcher := &scanWatcher{done: make(chan struct{})}
	orchestrator, err := faceauth.New(faceauth.Config{
		Camera:     camera,
		Oracle:     oracle,
		Profiles:   b.profiles,
		Identities: b.identities,
		Sessions: faceauth.SessionFunc(func(ctx context.Context, _, profileID string) error {
			s, err := sessions.CreateSession(ctx, profileID)
			if err != nil {
				return err
			}
			sessionMu.Lock()
			session = s
			sessionMu.Unlock()
			return nil
		}),
		Settings: faceauth.Settings{
			CaptureDelay:    cfg.Auth.CaptureDelay,
			RetryDelay:      cfg.Auth.RetryDelay,
			DisplayDelay:    cfg.Auth.DisplayDelay,
			MatchBudget:     cfg.Auth.MatchBudget,
			MaxFrameRetries: len(args),
		},
		Logger:   zap.L().Named("scan"),
		OnStatus: watcher.observe,
	})
	if err != nil {
		return err
	}
	defer orchestrator.Close()

	fmt.Printf("Scanning %d frame(s)...\n", len(args))
	if err := orchestrator.Start(); err != nil {
		return err
	}

	select {
	case <-watcher.done:
	case <-ctx.Done():
		return fmt.Errorf("scan did not finish: %w", ctx.Err())
	}

	st := watcher.status()
	if st.View == faceauth.ViewFaceSignup && !st.Completed {
		if signup.Name == "" || signup.Email == "" || signup.Password == "" {
			fmt.Println("\nFace not recognised. Re-run with --name, --email and --password to register it.")
			return nil
		}
		profile, err := orchestrator.FaceSignup(ctx, signup)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		fmt.Printf("\nRegistered %s (%s)\n", profile.Name, profile.ID)
		st = orchestrator.Status()
	}

	switch {
	case st.Completed:
		sessionMu.Lock()
		defer sessionMu.Unlock()
		fmt.Printf("\nAuthenticated as %s (%s)\n", st.ProfileName, st.ProfileID)
		if session != nil {
			fmt.Printf("Session token: %s\n", session.ID)
			fmt.Printf("Expires:       %s\n", session.ExpiresAt.Format(time.RFC3339))
		}
		return nil
	case st.View == faceauth.ViewDenied:
		return errors.New("access denied")
	default:
		return fmt.Errorf("scan failed: %s", st.Error)
	}
}
