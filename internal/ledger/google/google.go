// Package google reads and appends ledger rows in a Google Sheets
// spreadsheet. The sheet's first row is a header naming the columns.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"budgetwise/internal/core"
	"budgetwise/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is used when GOOGLE_SHEET_NAME is empty.
const DefaultSheetName = "Transactions"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

// Ensure interface conformance
var (
	_ ledger.TransactionReader = (*Client)(nil)
	_ ledger.UserLister        = (*Client)(nil)
	_ ledger.TransactionWriter = (*Client)(nil)
)

// Credentials names where the service account key comes from. JSON wins
// over File when both are set.
type Credentials struct {
	JSON string
	File string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Transactions")
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	creds := Credentials{
		JSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		File: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if strings.TrimSpace(creds.JSON) == "" && strings.TrimSpace(creds.File) == "" {
		creds.File = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	return NewClient(ctx, os.Getenv("GOOGLE_SPREADSHEET_ID"), os.Getenv("GOOGLE_SHEET_NAME"), creds)
}

// NewClient creates a Sheets client for one spreadsheet tab.
func NewClient(ctx context.Context, spreadsheetID, sheet string, creds Credentials) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheet), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadTransactions returns the rows of username in sheet order.
func (c *Client) ReadTransactions(ctx context.Context, username string) ([]core.TransactionRecord, error) {
	all, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.TransactionRecord, 0, len(all))
	for _, r := range all {
		if r.AccountUsername == username {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListUsers returns each username once, in order of first appearance.
func (c *Client) ListUsers(ctx context.Context) ([]string, error) {
	all, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var users []string
	for _, r := range all {
		if _, ok := seen[r.AccountUsername]; ok {
			continue
		}
		seen[r.AccountUsername] = struct{}{}
		users = append(users, r.AccountUsername)
	}
	return users, nil
}

// Record appends tx below the last row and returns the updated range.
func (c *Client) Record(ctx context.Context, tx core.TransactionRecord) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:H", c.sheet)
	vr := &gsheet.ValueRange{Values: [][]interface{}{toRow(tx)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Transaction appended to sheet",
		"component", "sheets",
		"user", tx.AccountUsername,
		"ref", ref)
	return ref, nil
}

func (c *Client) readAll(ctx context.Context) ([]core.TransactionRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	records, skipped, err := parseLedger(resp.Values)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rng, err)
	}
	for _, e := range skipped {
		slog.WarnContext(ctx, "Skipping malformed sheet row", "component", "sheets", "sheet", c.sheet, "error", e)
	}
	return records, nil
}

// toRow orders the fields as the default header written by hand-made sheets:
// Username, Operation, Amount, Time, Merchant, Type, Remark, Category.
func toRow(tx core.TransactionRecord) []interface{} {
	return []interface{}{
		tx.AccountUsername,
		string(tx.Operation),
		strconv.FormatFloat(tx.Amount, 'f', 2, 64),
		tx.Timestamp,
		tx.Merchant,
		tx.Type,
		tx.Remark,
		tx.Category,
	}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, targets ...string) int {
	for i, v := range arr {
		for _, target := range targets {
			if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
				return i
			}
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
