// Package storage uploads files to the object store under the application's key scheme.
package storage

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// Upload kinds and their key prefixes.
const (
	KindEvent            = "event"
	KindLogo             = "logo"
	KindOrganizationLogo = "organization-logo"
)

// SanitizeFilename keeps the base name and replaces whitespace runs with "-".
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		name = ""
	}
	name = strings.Join(strings.Fields(name), "-")
	if name == "" {
		return "file"
	}
	return name
}

func EventImageKey(at time.Time, filename string) string {
	return "events/" + strconv.FormatInt(at.UnixMilli(), 10) + "-" + SanitizeFilename(filename)
}

func LogoKey(organizationID string) string {
	return "logos/" + organizationID
}

func OrganizationLogoKey(at time.Time, filename string) string {
	return "organization-logos/" + strconv.FormatInt(at.UnixMilli(), 10) + "-" + SanitizeFilename(filename)
}

// ObjectKey picks the key scheme for kind. An empty kind is treated as an event image.
func ObjectKey(kind, organizationID, filename string, at time.Time) (string, error) {
	switch kind {
	case "", KindEvent:
		return EventImageKey(at, filename), nil
	case KindLogo:
		if strings.TrimSpace(organizationID) == "" || strings.ContainsAny(organizationID, "/\\") {
			return "", fmt.Errorf("logo upload requires a valid organizationId: %w", ErrInvalidUpload)
		}
		return LogoKey(organizationID), nil
	case KindOrganizationLogo:
		return OrganizationLogoKey(at, filename), nil
	}
	return "", fmt.Errorf("upload kind %q: %w", kind, ErrInvalidUpload)
}

// PublicURL is the virtual-hosted S3 URL of key.
func PublicURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}
