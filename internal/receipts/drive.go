package receipts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveStore keeps receipts in a Google Drive folder.
type DriveStore struct {
	svc      *drive.Service
	folderID string
}

func NewDriveStore(ctx context.Context, folderID string, opts ...option.ClientOption) (*DriveStore, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &DriveStore{svc: svc, folderID: folderID}, nil
}

// Upload stores the receipt in the configured folder and returns its
// web view link.
func (s *DriveStore) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	meta := &drive.File{
		Name:    name,
		Parents: []string{s.folderID},
	}

	created, err := s.svc.Files.Create(meta).
		Media(r).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload receipt to drive: %w", err)
	}

	slog.InfoContext(ctx, "Receipt uploaded",
		"name", name,
		"file_id", created.Id)

	return created.WebViewLink, nil
}

// Delete removes the file behind a previously returned view link.
func (s *DriveStore) Delete(ctx context.Context, receiptURL string) error {
	fileID, err := fileIDFromURL(receiptURL)
	if err != nil {
		return err
	}

	if err := s.svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete receipt from drive: %w", err)
	}

	slog.InfoContext(ctx, "Receipt deleted", "file_id", fileID)
	return nil
}

// fileIDFromURL extracts the Drive file id from the two link shapes the
// API hands out: ".../file/d/<id>/view" and "...?id=<id>".
func fileIDFromURL(receiptURL string) (string, error) {
	u, err := url.Parse(receiptURL)
	if err != nil {
		return "", fmt.Errorf("parse receipt URL %q: %w", receiptURL, err)
	}

	if id := u.Query().Get("id"); id != "" {
		return id, nil
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "d" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("no file id in receipt URL %q", receiptURL)
}
