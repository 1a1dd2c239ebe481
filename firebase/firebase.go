package firebase

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"

	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
)

const publicURLPrefix = "https://storage.googleapis.com/"

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

var privateNetworks = []*net.IPNet{
	parseCIDR("10.0.0.0/8"),
	parseCIDR("172.16.0.0/12"),
	parseCIDR("192.168.0.0/16"),
	parseCIDR("127.0.0.0/8"),
	parseCIDR("169.254.0.0/16"),
	parseCIDR("0.0.0.0/8"),
	parseCIDR("::1/128"),
	parseCIDR("fc00::/7"),
	parseCIDR("fe80::/10"),
}

// sanitizeFilename replaces anything outside [a-zA-Z0-9._-] and caps the length at 100.
func sanitizeFilename(filename string) string {
	sanitized := unsafeFilenameChars.ReplaceAllString(filename, "_")
	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		sanitized = "file"
	}
	return sanitized
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("invalid CIDR: %s", cidr))
	}
	return network
}

// validateExternalURL rejects URLs that are not http(s) or that resolve to private addresses.
func validateExternalURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme '%s' is not allowed; only http and https are permitted", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URL has no hostname")
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("requests to localhost are not allowed")
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("failed to resolve hostname '%s': %v", host, err)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("URL resolves to private IP address %s, which is not allowed", ip.String())
		}
	}
	return nil
}

// PublicURL is the unauthenticated URL of an object in bucket.
func PublicURL(bucket, objectPath string) string {
	return publicURLPrefix + bucket + "/" + objectPath
}

// ObjectPathFromURL recovers the object path from a PublicURL.
func ObjectPathFromURL(rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, publicURLPrefix) {
		return "", fmt.Errorf("invalid URL")
	}

	parts := strings.SplitN(strings.TrimPrefix(rawURL, publicURLPrefix), "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("invalid URL format")
	}
	return parts[1], nil
}

// NewApp initializes the Firebase app. GOOGLE_APPLICATION_CREDENTIALS may hold either
// inline JSON or a file path; when unset, default credentials are used.
func NewApp(ctx context.Context) (*firebase.App, error) {
	credJSON := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")

	var opts []option.ClientOption
	if credJSON != "" {
		if strings.HasPrefix(credJSON, "{") {
			log.Println("Using Firebase credentials from environment variable")
			opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
		} else {
			log.Println("Using Firebase credentials from file:", credJSON)
			opts = append(opts, option.WithCredentialsFile(credJSON))
		}
	} else {
		log.Println("WARNING: GOOGLE_APPLICATION_CREDENTIALS not set, using default credentials")
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init failed: %w", err)
	}

	log.Println("Firebase initialized successfully")
	return app, nil
}
