// internal/whmcs/whmcs.go
package whmcs

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-sql-driver/mysql"
)

// Store looks customers up in the WHMCS billing database. The only consumed
// table is tblcustomfieldsvalues, which maps a custom-field value (here: the
// Discord tag) to the owning client id.
type Store struct {
	db *sql.DB
	// discordFieldID selects which WHMCS custom field holds the Discord tag.
	discordFieldID int
}

func NewStore(host, database, username, password string, discordFieldID int) (*Store, error) {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = database
	cfg.User = username
	cfg.Passwd = password
	cfg.Timeout = 10 * time.Second

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db, discordFieldID: discordFieldID}, nil
}

// ClientID returns the WHMCS client id registered against the given Discord
// tag. Misses and query failures both resolve to not-found; failures are
// logged so a broken database shows up in the logs rather than to the user.
func (s *Store) ClientID(ctx context.Context, discordTag string) (int, bool) {
	var relID int
	err := s.db.QueryRowContext(ctx,
		"SELECT relid FROM tblcustomfieldsvalues WHERE fieldid = ? AND value = ?;",
		s.discordFieldID, discordTag,
	).Scan(&relID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false
	}
	if err != nil {
		log.Error("WHMCS lookup failed", "discord_tag", discordTag, "error", err)
		return 0, false
	}
	return relID, true
}

func (s *Store) Close() error {
	return s.db.Close()
}
