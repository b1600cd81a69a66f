// Package security loads the Google credentials used to read a dataset from
// Google Sheets.
package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Errors returned while loading credentials.
var (
	ErrCredentialsMissing = errors.New("credentials file not found")
	ErrCredentialsInvalid = errors.New("invalid credentials file")
)

// SupportedCredentialTypes lists the Google credential kinds accepted for
// read-only Sheets access.
var SupportedCredentialTypes = map[string]bool{
	"service_account":  true,
	"authorized_user":  true,
	"external_account": true,
}

// CredentialInfo is the non-secret part of a credentials file, safe to log.
type CredentialInfo struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id,omitempty"`
	ClientEmail string `json:"client_email,omitempty"`
}

// LoadCredentials reads and checks a Google credentials JSON file. It returns
// the raw JSON and the fields that identify it.
func LoadCredentials(path string) ([]byte, *CredentialInfo, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("%w: no path configured", ErrCredentialsMissing)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrCredentialsMissing, path)
		}
		return nil, nil, fmt.Errorf("read credentials %s: %w", path, err)
	}

	var info CredentialInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrCredentialsInvalid, path, err)
	}
	if !SupportedCredentialTypes[info.Type] {
		return nil, nil, fmt.Errorf("%w: %s: unsupported type %q", ErrCredentialsInvalid, path, info.Type)
	}
	if info.Type == "service_account" && info.ClientEmail == "" {
		return nil, nil, fmt.Errorf("%w: %s: service account without client_email", ErrCredentialsInvalid, path)
	}
	return data, &info, nil
}

// NewSheetsService creates a read-only Google Sheets client from the
// credentials file at path. Extra options are appended after the
// credentials, so tests can redirect the endpoint.
func NewSheetsService(ctx context.Context, path string, logger *slog.Logger, opts ...option.ClientOption) (*sheets.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "credentials"))

	data, info, err := LoadCredentials(path)
	if err != nil {
		logAuditEvent(ctx, logger, "credentials_load_failed", nil, err)
		return nil, err
	}

	clientOpts := append([]option.ClientOption{
		option.WithCredentialsJSON(data),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	}, opts...)

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		logAuditEvent(ctx, logger, "sheets_service_creation_failed", info, err)
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	logAuditEvent(ctx, logger, "sheets_service_created", info, nil)
	return svc, nil
}

// logAuditEvent records credential use without the secret material.
func logAuditEvent(ctx context.Context, logger *slog.Logger, eventType string, info *CredentialInfo, err error) {
	level := slog.LevelInfo
	attrs := []slog.Attr{
		slog.String("event_type", eventType),
		slog.Bool("success", err == nil),
		slog.Int("process_id", os.Getpid()),
	}
	if info != nil {
		attrs = append(attrs,
			slog.String("credential_type", info.Type),
			slog.String("client_email", info.ClientEmail))
	}
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.LogAttrs(ctx, level, "Credential access event", attrs...)
}
