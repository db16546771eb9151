package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/quandify2mqtt/quandify2mqtt/internal/quandify"
)

// quandify-probe authenticates against the partner API and fetches one
// consumption window. Useful for checking credentials before deploying the
// bridge.
func main() {
	var (
		accountID      = flag.String("account-id", os.Getenv("QUANDIFY_ACCOUNT_ID"), "Quandify partner account id")
		password       = flag.String("password", os.Getenv("QUANDIFY_PASSWORD"), "Quandify partner password")
		organizationID = flag.String("organization-id", os.Getenv("QUANDIFY_ORGANIZATION_ID"), "Organization GUID")
		authURL        = flag.String("auth-url", envOrDefault("QUANDIFY_AUTH_URL", quandify.DefaultAuthURL), "Auth endpoint")
		apiURL         = flag.String("api-url", envOrDefault("QUANDIFY_API_URL", quandify.DefaultAPIURL), "API base URL")
		window         = flag.String("window", "day", "Window to fetch: day or hour")
		timeout        = flag.Duration("timeout", 30*time.Second, "Overall timeout")
	)
	flag.Parse()

	if *accountID == "" || *password == "" || *organizationID == "" {
		fmt.Fprintln(os.Stderr, "account-id, password and organization-id are required (flags or QUANDIFY_* env)")
		flag.Usage()
		os.Exit(2)
	}

	client, err := quandify.NewClient(quandify.Config{
		AccountID:      *accountID,
		Password:       *password,
		OrganizationID: *organizationID,
		AuthURL:        *authURL,
		APIURL:         *apiURL,
	})
	if err != nil {
		fatal("configure", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := client.Validate(ctx); err != nil {
		if quandify.IsAuthError(err) {
			fatal("authenticate (check account-id and password)", err)
		}
		fatal("authenticate", err)
	}
	fmt.Println("authentication ok")

	var reading quandify.Reading
	switch *window {
	case "day":
		reading, err = client.DailyConsumption(ctx)
	case "hour":
		reading, err = client.HourlyConsumption(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown window %q, want day or hour\n", *window)
		os.Exit(2)
	}
	if err != nil {
		fatal("fetch consumption", err)
	}

	fmt.Printf("window: %s .. %s (%s)\n",
		reading.From.Format(time.RFC3339), reading.To.Format(time.RFC3339), reading.Granularity)
	fmt.Printf("volume: %.2f L\n", reading.VolumeLiters)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func fatal(action string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", action, err)
	os.Exit(1)
}
