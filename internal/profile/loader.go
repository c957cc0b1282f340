package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/frontdeskai/frontdesk/internal/domain"
)

// missingFAQFallback is handed to the responder when a client has not
// provided any business information yet.
const missingFAQFallback = "No FAQ data found. The business owner has not provided any information yet."

// DefaultRequiredFields is the lead field policy used when a bundle does not
// declare its own.
var DefaultRequiredFields = []string{"name", "phone", "reason"}

var clientIDPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// bundleManifest is the on-disk profile.json shape.
type bundleManifest struct {
	DisplayName       string   `json:"display_name"`
	NotificationEmail string   `json:"notification_email"`
	RequiredFields    []string `json:"required_fields"`
}

// FileLoader reads client bundles from a directory tree:
//
//	<root>/<client_id>/profile.json
//	<root>/<client_id>/faq.txt   (optional)
//	<root>/<client_id>/tone.txt  (optional)
type FileLoader struct {
	root string
}

// NewFileLoader creates a loader rooted at dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{root: dir}
}

// Load reads the bundle for clientID. Returns ErrUnknownClient when the
// client directory or its manifest does not exist.
func (l *FileLoader) Load(_ context.Context, clientID string) (*domain.ClientProfile, error) {
	if !clientIDPattern.MatchString(clientID) {
		return nil, ErrUnknownClient
	}

	dir := filepath.Join(l.root, clientID)
	manifestPath := filepath.Join(dir, "profile.json")

	data, err := os.ReadFile(manifestPath)
	if os.IsNotExist(err) {
		return nil, ErrUnknownClient
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m bundleManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.NotificationEmail == "" {
		return nil, fmt.Errorf("manifest for %q missing notification_email", clientID)
	}

	p := &domain.ClientProfile{
		ClientID:          clientID,
		DisplayName:       m.DisplayName,
		RequiredFields:    m.RequiredFields,
		NotificationEmail: m.NotificationEmail,
	}
	if p.DisplayName == "" {
		p.DisplayName = clientID
	}
	if len(p.RequiredFields) == 0 {
		p.RequiredFields = append([]string(nil), DefaultRequiredFields...)
	}

	p.FAQText = readOptional(filepath.Join(dir, "faq.txt"), missingFAQFallback)
	p.ToneDescriptor = readOptional(filepath.Join(dir, "tone.txt"), "")

	return p, nil
}

func readOptional(path, fallback string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	return string(data)
}
