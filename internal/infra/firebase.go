// README: Firebase Admin SDK initialisation for the Realtime Database rider store.
package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// NewFirebaseDB returns a Realtime Database client authenticated with the
// service-account file. When databaseURL is empty it is derived from the
// account's project_id as https://<project>-default-rtdb.firebaseio.com.
func NewFirebaseDB(ctx context.Context, credentialsFile, databaseURL string) (*db.Client, error) {
	projectID, err := projectIDFromCredentials(credentialsFile)
	if err != nil {
		return nil, err
	}
	if databaseURL == "" {
		databaseURL = DefaultDatabaseURL(projectID)
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:   projectID,
		DatabaseURL: databaseURL,
	}, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Database: %w", err)
	}
	return client, nil
}

func DefaultDatabaseURL(projectID string) string {
	return fmt.Sprintf("https://%s-default-rtdb.firebaseio.com", projectID)
}

func projectIDFromCredentials(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read firebase credentials: %w", err)
	}
	var creds struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(b, &creds); err != nil {
		return "", fmt.Errorf("parse firebase credentials: %w", err)
	}
	if creds.ProjectID == "" {
		return "", fmt.Errorf("firebase credentials %s: missing project_id", path)
	}
	return creds.ProjectID, nil
}
