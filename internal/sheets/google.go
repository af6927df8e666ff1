package sheets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	pemMarker        = "BEGIN PRIVATE KEY"
	valueInputOption = "USER_ENTERED"
)

type GoogleConfig struct {
	SpreadsheetID       string
	DefaultTab          string
	ServiceAccountEmail string
	PrivateKey          string
	PrivateKeyB64       string
	Timeout             time.Duration
}

type GoogleClient struct {
	service       *sheetsapi.Service
	spreadsheetID string
	defaultTab    string
	logger        *logrus.Logger
}

func NewGoogleClient(ctx context.Context, cfg GoogleConfig, logger *logrus.Logger) (*GoogleClient, error) {
	if cfg.SpreadsheetID == "" || cfg.ServiceAccountEmail == "" {
		return nil, ErrMissingCredentials
	}
	key, err := DecodePrivateKey(cfg.PrivateKey, cfg.PrivateKeyB64)
	if err != nil {
		return nil, err
	}

	conf := &jwt.Config{
		Email:      cfg.ServiceAccountEmail,
		PrivateKey: key,
		Scopes:     []string{sheetsapi.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	httpClient := conf.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	service, err := sheetsapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &GoogleClient{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		defaultTab:    cfg.DefaultTab,
		logger:        logger,
	}, nil
}

// DecodePrivateKey accepts a base64 value holding either a PEM key or a whole service-account
// JSON file, or a PEM value whose newlines were escaped as \n.
func DecodePrivateKey(pem, pemB64 string) ([]byte, error) {
	var key string
	switch {
	case strings.TrimSpace(pemB64) != "":
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(pemB64))
		if err != nil {
			return nil, fmt.Errorf("decode private key: %w", err)
		}
		key = string(decoded)
		if strings.HasPrefix(strings.TrimSpace(key), "{") {
			var account struct {
				PrivateKey string `json:"private_key"`
			}
			if err := json.Unmarshal(decoded, &account); err != nil {
				return nil, fmt.Errorf("decode service account json: %w", err)
			}
			key = account.PrivateKey
		}
	case strings.TrimSpace(pem) != "":
		key = strings.Trim(strings.TrimSpace(pem), `"`)
	default:
		return nil, ErrMissingCredentials
	}

	key = strings.ReplaceAll(key, `\n`, "\n")
	if !strings.Contains(key, pemMarker) {
		return nil, fmt.Errorf("private key is not a PEM block: %w", ErrMissingCredentials)
	}
	return []byte(key), nil
}

func (c *GoogleClient) ReadRows(ctx context.Context, tab string) ([][]string, error) {
	tab, err := c.resolveTab(ctx, tab)
	if err != nil {
		return nil, err
	}

	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, quoteTab(tab)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read tab %q: %w", tab, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, values := range resp.Values {
		row := make([]string, len(values))
		for j, value := range values {
			if value != nil {
				row[j] = fmt.Sprint(value)
			}
		}
		rows[i] = row
	}

	c.logger.WithFields(logrus.Fields{
		"tab":  tab,
		"rows": len(rows),
	}).Debug("Fetched sheet rows")
	return rows, nil
}

func (c *GoogleClient) AppendRows(ctx context.Context, tab string, rows [][]string) error {
	tab, err := c.resolveTab(ctx, tab)
	if err != nil {
		return err
	}

	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	_, err = c.service.Spreadsheets.Values.
		Append(c.spreadsheetID, quoteTab(tab), &sheetsapi.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to tab %q: %w", tab, err)
	}

	c.logger.WithFields(logrus.Fields{
		"tab":  tab,
		"rows": len(rows),
	}).Info("Appended sheet rows")
	return nil
}

// resolveTab falls back to the configured default tab, then to the first sheet of the document.
func (c *GoogleClient) resolveTab(ctx context.Context, tab string) (string, error) {
	if tab != "" {
		return tab, nil
	}
	if c.defaultTab != "" {
		return c.defaultTab, nil
	}

	spreadsheet, err := c.service.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets(properties(title))").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list tabs: %w", err)
	}
	if len(spreadsheet.Sheets) == 0 || spreadsheet.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet has no sheets: %w", ErrTabNotFound)
	}
	return spreadsheet.Sheets[0].Properties.Title, nil
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
