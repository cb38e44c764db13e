package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/suraksha/internal/config"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List stored user profiles",
	Long:  `Lists every profile in the order face matching visits them.`,
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)

	profilesCmd.Flags().Bool("json", false, "Output as JSON")
}

// profileRow is the listing view of a profile. Face artifacts are omitted.
type profileRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Status      string    `json:"verificationStatus"`
	HasFaceData bool      `json:"hasFaceData"`
	CreatedAt   time.Time `json:"createdAt"`
}

func runProfiles(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	ctx := context.Background()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackends()

	profiles, err := b.profiles.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	rows := make([]profileRow, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		rows = append(rows, profileRow{
			ID:          p.ID,
			Name:        p.Name,
			Email:       p.Email,
			Status:      p.Status,
			HasFaceData: p.Descriptor() != "",
			CreatedAt:   p.CreatedAt,
		})
	}

	if jsonOutput {
		return outputJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Println("No profiles found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tSTATUS\tFACE\tCREATED")
	fmt.Fprintln(w, "--\t----\t-----\t------\t----\t-------")
	for _, r := range rows {
		face := "no"
		if r.HasFaceData {
			face = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Email, r.Status, face, r.CreatedAt.Format(time.DateOnly))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d profiles\n", len(rows))
	return nil
}
