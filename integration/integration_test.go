//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/joho/godotenv"

	icontact "github.com/icontact-sdk/client-go"
	"github.com/icontact-sdk/client-go/credstore"
)

var (
	apiKey       string
	sharedSecret string
	username     string
	password     string
	baseURL      string
	appID        string
)

func TestMain(m *testing.M) {
	// Load .env file if it exists (won't error if missing)
	if err := godotenv.Load("../.env"); err != nil {
		os.Stderr.WriteString("Note: .env file not found at project root\n")
	}

	apiKey = os.Getenv("ICONTACT_API_KEY")
	sharedSecret = os.Getenv("ICONTACT_SHARED_SECRET")
	username = os.Getenv("ICONTACT_USERNAME")
	password = os.Getenv("ICONTACT_PASSWORD")
	baseURL = os.Getenv("ICONTACT_BASE_URL")
	appID = os.Getenv("ICONTACT_APP_ID")

	if apiKey == "" || username == "" || password == "" {
		os.Stderr.WriteString("Skipping integration tests: ICONTACT_API_KEY, ICONTACT_USERNAME or ICONTACT_PASSWORD not set\n")
		os.Exit(0)
	}

	os.Stderr.WriteString("Running integration tests...\n")
	os.Exit(m.Run())
}

func newClient(t *testing.T, opts ...icontact.Option) *icontact.Client {
	t.Helper()

	opts = append([]icontact.Option{
		icontact.WithTimeout(30 * time.Second),
		icontact.WithRateLimit(1, 1),
	}, opts...)
	if baseURL != "" {
		opts = append(opts, icontact.WithBaseURL(baseURL))
	}

	client, err := icontact.New(apiKey, sharedSecret, username, icontact.HashPassword(password), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestIntegration_Login(t *testing.T) {
	client := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := client.Login(ctx)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if s.Token == "" {
		t.Error("Login() returned an empty token")
	}
}

func TestIntegration_ListsAndCampaigns(t *testing.T) {
	client := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	lists, err := client.Lists(ctx)
	if err != nil {
		t.Fatalf("Lists() error = %v", err)
	}
	for _, ref := range lists {
		list, err := client.List(ctx, ref.ID)
		if err != nil {
			t.Fatalf("List(%d) error = %v", ref.ID, err)
		}
		if list.ID != ref.ID {
			t.Errorf("List(%d).ID = %d", ref.ID, list.ID)
		}
	}

	if _, err := client.Campaigns(ctx); err != nil {
		t.Fatalf("Campaigns() error = %v", err)
	}
}

func TestIntegration_ContactRoundTrip(t *testing.T) {
	client := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	email := "go-client-" + strconv.FormatInt(time.Now().Unix(), 10) + "@example.com"
	ref, err := client.AddUpdateContact(ctx, &icontact.Contact{Email: email, FirstName: "Integration"})
	if err != nil {
		t.Fatalf("AddUpdateContact() error = %v", err)
	}

	contact, err := client.Contact(ctx, ref.ID)
	if err != nil {
		t.Fatalf("Contact() error = %v", err)
	}
	if contact.Email != email || contact.FirstName != "Integration" {
		t.Errorf("Contact() = %+v", contact)
	}
}

func TestIntegration_SharedSessionFile(t *testing.T) {
	key, err := credstore.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	store := credstore.NewFile(filepath.Join(t.TempDir(), "session.json"), key)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	first := newClient(t, icontact.WithCredentialStore(store))
	s, err := first.Login(ctx)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	second := newClient(t, icontact.WithCredentialStore(store))
	if second.Session() != s {
		t.Errorf("second client session = %+v, want %+v", second.Session(), s)
	}
	if _, err := second.Lists(ctx); err != nil {
		t.Fatalf("Lists() with shared session error = %v", err)
	}
}

func TestIntegration_BadPassword(t *testing.T) {
	client, err := icontact.New(apiKey, sharedSecret, username, icontact.HashPassword("wrong-"+password))
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Login(context.Background())
	var apiErr *icontact.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Login() error = %v, want *APIError", err)
	}
}

func TestIntegration_V2Accounts(t *testing.T) {
	if appID == "" {
		t.Skip("ICONTACT_APP_ID not set")
	}

	client, err := icontact.NewV2(appID, username, password)
	if err != nil {
		t.Fatal(err)
	}
	accounts, err := client.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts() error = %v", err)
	}
	if len(accounts) == 0 {
		t.Error("Accounts() returned no accounts")
	}
}
