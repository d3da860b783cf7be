package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"

	apperrors "repdata/pkg/errors"
	"repdata/pkg/models"
)

// Config holds warehouse connection configuration
type Config struct {
	Dialect   string
	DSN       string
	Account   string
	Username  string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Role      string
	Timeout   time.Duration
}

// ConfigFromModel converts a config-file connection block.
func ConfigFromModel(c models.Connection) Config {
	timeout, _ := time.ParseDuration(c.Timeout)
	return Config{
		Dialect:   c.Dialect,
		DSN:       c.DSN,
		Account:   c.Account,
		Username:  c.Username,
		Password:  c.Password,
		Database:  c.Database,
		Schema:    c.Schema,
		Warehouse: c.Warehouse,
		Role:      c.Role,
		Timeout:   timeout,
	}
}

// Service provides warehouse operations over one connection pool
type Service struct {
	db        *sqlx.DB
	dialect   Dialect
	config    Config
	connected bool
}

// NewService creates a service for the configured dialect. It does not connect.
func NewService(config Config) (*Service, error) {
	d, err := DialectFor(config.Dialect)
	if err != nil {
		return nil, err
	}
	return &Service{config: config, dialect: d}, nil
}

// NewServiceFromDB wraps an already open database handle.
func NewServiceFromDB(db *sql.DB, dialect string) (*Service, error) {
	d, err := DialectFor(dialect)
	if err != nil {
		return nil, err
	}
	return &Service{
		db:        sqlx.NewDb(db, d.DriverName),
		dialect:   d,
		config:    Config{Dialect: dialect},
		connected: true,
	}, nil
}

// DB returns the underlying handle, nil before Connect.
func (s *Service) DB() *sql.DB {
	if s.db == nil {
		return nil
	}
	return s.db.DB
}

// Dialect returns the service's SQL dialect
func (s *Service) Dialect() Dialect {
	return s.dialect
}

// DSN builds the driver connection string
func (s *Service) DSN() (string, error) {
	if s.dialect.Name != "snowflake" {
		return s.config.DSN, nil
	}
	if s.config.DSN != "" {
		return s.config.DSN, nil
	}
	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:   s.config.Account,
		User:      s.config.Username,
		Password:  s.config.Password,
		Database:  s.config.Database,
		Schema:    s.config.Schema,
		Warehouse: s.config.Warehouse,
		Role:      s.config.Role,
	})
	if err != nil {
		return "", apperrors.ConfigError(fmt.Sprintf("Invalid Snowflake connection settings: %v", err), "account")
	}
	return dsn, nil
}

// Connect opens the pool and pings the warehouse
func (s *Service) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}
	if err := ValidateConfig(s.config); err != nil {
		return err
	}

	dsn, err := s.DSN()
	if err != nil {
		return err
	}

	db, err := sqlx.Open(s.dialect.DriverName, dsn)
	if err != nil {
		return apperrors.ConnectionError(fmt.Sprintf("Failed to open %s connection", s.dialect.Name), err).
			WithContext("dialect", s.dialect.Name)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	if s.dialect.Name == "sqlite" {
		// One writer; extra connections would each see their own :memory: database.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := s.getContext(ctx)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		if strings.Contains(strings.ToLower(err.Error()), "authentication") ||
			strings.Contains(strings.ToLower(err.Error()), "password") {
			return apperrors.New(apperrors.ErrCodeAuthenticationFailed, "Authentication failed").
				WithContext("user", s.config.Username).
				WithSuggestions(
					"Verify your username and password",
					"Store the password with 'repdata init' or set it in config.yaml",
				)
		}
		return apperrors.ConnectionError(fmt.Sprintf("Failed to connect to %s", s.dialect.Name), err).
			WithContext("dialect", s.dialect.Name).
			WithContext("account", s.config.Account)
	}

	s.db = db
	s.connected = true
	return nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}
	s.connected = false
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (s *Service) ensureConnected() error {
	if !s.connected {
		return apperrors.New(apperrors.ErrCodeConnectionFailed, "Not connected to database").
			WithSuggestions("Call Connect() before executing SQL")
	}
	return nil
}

// ExecuteSQL runs a multi-statement script in one transaction.
func (s *Service) ExecuteSQL(ctx context.Context, script string) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}

	handler := apperrors.NewTransactionHandler(tx.Commit, tx.Rollback)
	return handler.Execute(func() error {
		statements := splitStatements(script)
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return apperrors.SQLError(
					fmt.Sprintf("Failed to execute statement %d", i+1),
					stmt,
					err,
				).WithContext("statement_index", i+1).
					WithContext("total_statements", len(statements))
			}
		}
		return nil
	})
}

// getContext bounds connection setup. Query deadlines come from the caller.
func (s *Service) getContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}

// splitStatements splits on semicolons outside quoted strings and drops
// empty statements.
func splitStatements(script string) []string {
	var statements []string
	var current strings.Builder
	var quote rune

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, char := range script {
		switch {
		case quote != 0:
			if char == quote {
				quote = 0
			}
		case char == '\'' || char == '"':
			quote = char
		case char == ';':
			flush()
			continue
		}
		current.WriteRune(char)
	}
	flush()
	return statements
}

// ValidateConfig checks that the connection settings are complete
func ValidateConfig(config Config) error {
	switch strings.ToLower(config.Dialect) {
	case "snowflake":
		if config.DSN != "" {
			return nil
		}
		if config.Account == "" {
			return apperrors.ConfigError("account is required", "account")
		}
		if config.Username == "" {
			return apperrors.ConfigError("username is required", "username")
		}
		if config.Password == "" {
			return apperrors.ConfigError("password is required", "password")
		}
		if config.Database == "" {
			return apperrors.ConfigError("database is required", "database")
		}
	case "postgres", "sqlite":
		if config.DSN == "" {
			return apperrors.ConfigError("dsn is required", "dsn")
		}
	default:
		_, err := DialectFor(config.Dialect)
		return err
	}
	return nil
}
