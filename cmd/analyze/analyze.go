// Package analyze implements the one-shot analysis command: ingest a
// single image file, run the full pipeline against it and print the
// result.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/boxlens/boxlens-go/internal/analysis"
	"github.com/boxlens/boxlens-go/internal/broadcast"
	"github.com/boxlens/boxlens-go/internal/conf"
	"github.com/boxlens/boxlens-go/internal/datastore"
	"github.com/boxlens/boxlens-go/internal/errors"
	"github.com/boxlens/boxlens-go/internal/notifier"
	"github.com/boxlens/boxlens-go/internal/scope"
	"github.com/boxlens/boxlens-go/internal/vision"
)

// Command creates the analyze command.
func Command(settings *conf.Settings) *cobra.Command {
	var projectID, userID, orgID string

	cmd := &cobra.Command{
		Use:   "analyze [image file]",
		Short: "Analyze a single image file",
		Long:  "Run the capture analysis pipeline once against a local image and print the resulting item and box counts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(settings, args[0], projectID, userID, orgID)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID to attach the capture to (created if missing)")
	cmd.Flags().StringVar(&userID, "user", "", "Owning user ID (personal scope)")
	cmd.Flags().StringVar(&orgID, "org", "", "Owning organization ID (organization scope)")
	cmd.Flags().StringVar(&settings.Vision.Endpoint, "endpoint", viper.GetString("vision.endpoint"), "Vision service endpoint")

	if err := viper.BindPFlag("vision.endpoint", cmd.Flags().Lookup("endpoint")); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func ownerScope(userID, orgID string) (scope.Scope, error) {
	switch {
	case userID != "" && orgID != "":
		return scope.Scope{}, errors.Newf("--user and --org are mutually exclusive").
			Component("analyze").
			Category(errors.CategoryScope).
			Build()
	case orgID != "":
		return scope.Organization(orgID), nil
	case userID != "":
		return scope.Personal(userID), nil
	default:
		return scope.Scope{}, errors.Newf("either --user or --org is required").
			Component("analyze").
			Category(errors.CategoryScope).
			Build()
	}
}

func runAnalyze(settings *conf.Settings, imagePath, projectID, userID, orgID string) error {
	sc, err := ownerScope(userID, orgID)
	if err != nil {
		return err
	}

	payload, err := os.ReadFile(imagePath)
	if err != nil {
		return errors.New(err).
			Component("analyze").
			Category(errors.CategoryFileIO).
			Context("path", imagePath).
			Build()
	}
	mimeType := http.DetectContentType(payload)

	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no database backend enabled").
			Component("analyze").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	if projectID == "" {
		projectID = uuid.NewString()
	}
	if err := store.TouchProject(ctx, projectID, sc); err != nil {
		if !errors.IsNotFound(err) {
			return err
		}
		ownerUser, ownerOrg := sc.Owner()
		if err := store.CreateProject(ctx, &datastore.Project{
			ID:     projectID,
			Name:   "Ad-hoc analysis",
			UserID: ownerUser,
			OrgID:  ownerOrg,
		}); err != nil {
			return err
		}
	}

	ownerUser, ownerOrg := sc.Owner()
	capture := &datastore.Capture{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    ownerUser,
		OrgID:     ownerOrg,
		MimeType:  mimeType,
		Payload:   payload,
	}
	if err := store.CreateCapture(ctx, capture); err != nil {
		return err
	}

	broadcaster := broadcast.New(&settings.Broadcast)
	defer broadcaster.Shutdown()

	pushNotifier, err := notifier.New(&settings.Push)
	if err != nil {
		return err
	}

	pipeline := analysis.New(settings, store, vision.NewClient(&settings.Vision, nil),
		broadcaster, pushNotifier, nil)

	result, err := pipeline.Run(ctx, capture.ID, projectID, sc)
	if err != nil {
		return err
	}

	output := struct {
		CaptureID string `json:"capture_id"`
		ProjectID string `json:"project_id"`
		analysis.Result
	}{capture.ID, projectID, result}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
