package tabular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

const (
	// SheetsReadonlyScope is the only scope requested for service accounts.
	SheetsReadonlyScope = "https://www.googleapis.com/auth/spreadsheets.readonly"

	// DefaultSheetsBaseURL is the public Sheets API endpoint.
	DefaultSheetsBaseURL = "https://sheets.googleapis.com"
)

// SheetsSource reads a range through the Sheets v4 values API using a
// service account key file.
type SheetsSource struct {
	CredentialsPath string
	SpreadsheetID   string
	Range           string

	// BaseURL overrides DefaultSheetsBaseURL.
	BaseURL string
	// Client, when set, is used as an already authorized client and the
	// credentials file is not read.
	Client *http.Client
}

func (s SheetsSource) Describe() string {
	return "sheets:" + s.SpreadsheetID + "/" + s.Range
}

func (s SheetsSource) Values(ctx context.Context) ([][]string, error) {
	client := s.Client
	if client == nil {
		conf, err := LoadServiceAccount(s.CredentialsPath)
		if err != nil {
			return nil, err
		}
		client = conf.Client(ctx)
	}

	if strings.TrimSpace(s.SpreadsheetID) == "" {
		return nil, fmt.Errorf("%w: Spreadsheet ID is required.", ErrInvalidRange)
	}
	if strings.TrimSpace(s.Range) == "" {
		return nil, fmt.Errorf("%w: Range is required.", ErrInvalidRange)
	}

	base := s.BaseURL
	if base == "" {
		base = DefaultSheetsBaseURL
	}
	endpoint := strings.TrimRight(base, "/") + "/v4/spreadsheets/" +
		url.PathEscape(strings.TrimSpace(s.SpreadsheetID)) + "/values/" +
		url.PathEscape(strings.TrimSpace(s.Range))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, sheetsStatusError(resp.StatusCode, body)
	}

	var vr valueRange
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}

	values := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = cellText(c)
		}
		values[i] = cells
	}
	return values, nil
}

type valueRange struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// sheetsStatusError maps a non-200 reply. A 400 is a range the API could
// not parse; everything else means the sheet could not be reached.
func sheetsStatusError(status int, body []byte) error {
	msg := http.StatusText(status)
	var ae apiError
	if json.Unmarshal(body, &ae) == nil && ae.Error.Message != "" {
		msg = ae.Error.Message
	}
	if status == http.StatusBadRequest {
		return fmt.Errorf("%w: %s", ErrInvalidRange, msg)
	}
	return fmt.Errorf("%w: sheets api returned %d: %s", ErrSourceUnavailable, status, msg)
}

func cellText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		return fmt.Sprint(c)
	}
}

type serviceAccountKey struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// LoadServiceAccount reads and validates a service account key file and
// returns a JWT config for the read-only Sheets scope.
func LoadServiceAccount(path string) (*jwt.Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: Credentials path is required.", ErrSourceUnavailable)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			err = pe.Err
		}
		return nil, fmt.Errorf("%w: Unable to read credentials file: %v", ErrSourceUnavailable, err)
	}

	var key serviceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("%w: Credentials file is not valid JSON.", ErrSourceUnavailable)
	}
	if key.ClientEmail == "" {
		return nil, fmt.Errorf("%w: Credentials file is missing client_email.", ErrSourceUnavailable)
	}
	if key.PrivateKey == "" {
		return nil, fmt.Errorf("%w: Credentials file is missing private_key.", ErrSourceUnavailable)
	}

	tokenURL := key.TokenURI
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}

	return &jwt.Config{
		Email:        key.ClientEmail,
		PrivateKey:   []byte(strings.ReplaceAll(key.PrivateKey, `\n`, "\n")),
		PrivateKeyID: key.PrivateKeyID,
		Scopes:       []string{SheetsReadonlyScope},
		TokenURL:     tokenURL,
	}, nil
}
