package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"partner-portal/internal/mapping"
	"partner-portal/internal/models"
	"partner-portal/internal/sheets"
)

var ErrNotAuthorized = errors.New("not authorized")

const (
	headerScanRows     = 5
	emailFallbackIndex = 2 // column C
	partnerSkipRows    = 3 // partner list starts at the fourth data row
)

// userSchema covers the Users tab.
var userSchema = mapping.Schema{
	{Field: models.FieldEmail, Candidates: []string{"user", "email", "correo"}},
	{Field: models.FieldRole, Candidates: []string{"role", "rol"}},
	{Field: models.FieldPartner, Candidates: []string{"partner", "org", "company", "empresa"}},
}

type User struct {
	Email   string
	Role    string
	Partner string
}

type Directory struct {
	source       sheets.Source
	usersTab     string
	signInLogTab string
	logger       *logrus.Logger
}

func NewDirectory(source sheets.Source, usersTab, signInLogTab string, logger *logrus.Logger) *Directory {
	return &Directory{
		source:       source,
		usersTab:     usersTab,
		signInLogTab: signInLogTab,
		logger:       logger,
	}
}

// Users reads the allow-list. Users without an email are skipped.
func (d *Directory) Users(ctx context.Context) ([]User, error) {
	rows, err := d.readUsersTab(ctx)
	if err != nil {
		return nil, err
	}
	return ParseUsers(rows), nil
}

// Lookup finds a user by email, ignoring case and surrounding blanks.
func (d *Directory) Lookup(ctx context.Context, email string) (User, bool, error) {
	all, err := d.Users(ctx)
	if err != nil {
		return User{}, false, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range all {
		if user.Email == email {
			return user, true, nil
		}
	}
	return User{}, false, nil
}

func (d *Directory) Partners(ctx context.Context) ([]string, error) {
	rows, err := d.readUsersTab(ctx)
	if err != nil {
		return nil, err
	}
	return ParsePartners(rows), nil
}

// LogSignIn appends a sign-in row for an allow-listed email.
func (d *Directory) LogSignIn(ctx context.Context, email, userName string, now time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, ok, err := d.Lookup(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}

	name := strings.TrimSpace(userName)
	if name == "" {
		name = email
	}
	row := []string{name, email, now.UTC().Format(time.RFC3339)}
	if err := d.source.AppendRows(ctx, d.signInLogTab, [][]string{row}); err != nil {
		return fmt.Errorf("log sign in: %w", err)
	}

	d.logger.WithField("email", email).Info("Sign in logged")
	return nil
}

// readUsersTab tries the configured tab name and its lower and upper case variants.
func (d *Directory) readUsersTab(ctx context.Context) ([][]string, error) {
	var lastErr error
	tried := make(map[string]bool)
	for _, tab := range []string{d.usersTab, strings.ToLower(d.usersTab), strings.ToUpper(d.usersTab)} {
		if tried[tab] {
			continue
		}
		tried[tab] = true

		rows, err := d.source.ReadRows(ctx, tab)
		if err != nil {
			d.logger.WithError(err).WithField("tab", tab).Debug("Users tab variant failed")
			lastErr = err
			continue
		}
		if len(rows) > 0 {
			return rows, nil
		}
		lastErr = nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("read users tab: %w", lastErr)
	}
	return nil, nil
}

// splitHeader finds the header row among the first rows. Without one, every row is data and
// row 0 still provides the headers.
func splitHeader(rows [][]string) ([]string, [][]string) {
	for i, row := range rows {
		if i >= headerScanRows {
			break
		}
		for _, value := range row {
			if h := mapping.NormalizeHeader(value); h == "user" || h == "email" {
				return row, rows[i+1:]
			}
		}
	}
	return rows[0], rows
}

func ParseUsers(rows [][]string) []User {
	if len(rows) == 0 {
		return nil
	}
	headers, data := splitHeader(rows)

	cols := mapping.Resolve(headers, userSchema)
	emailIdx := cols.Index(models.FieldEmail)
	if emailIdx < 0 {
		emailIdx = emailFallbackIndex
	}
	roleIdx := cols.Index(models.FieldRole)
	partnerIdx := cols.Index(models.FieldPartner)

	var out []User
	for _, row := range data {
		if mapping.IsBlankRow(row) {
			continue
		}
		user := User{
			Email:   strings.ToLower(cell(row, emailIdx)),
			Role:    strings.ToLower(cell(row, roleIdx)),
			Partner: cell(row, partnerIdx),
		}
		if user.Email != "" {
			out = append(out, user)
		}
	}
	return out
}

// ParsePartners lists the distinct partner names from the fourth data row onwards, sorted
// with Spanish collation.
func ParsePartners(rows [][]string) []string {
	partners := []string{}
	if len(rows) == 0 {
		return partners
	}
	headers, data := splitHeader(rows)
	partnerIdx := mapping.Resolve(headers, userSchema).Index(models.FieldPartner)
	if partnerIdx < 0 || len(data) <= partnerSkipRows {
		return partners
	}

	seen := make(map[string]bool)
	for _, row := range data[partnerSkipRows:] {
		value := cell(row, partnerIdx)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		partners = append(partners, value)
	}

	collate.New(language.Spanish).SortStrings(partners)
	return partners
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
