package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"

	"github.com/iudanet/sketchsync/internal/roomid"
	"github.com/iudanet/sketchsync/internal/validation"
)

// Client - конфигурация клиента
type Client struct {
	ServerURL string
	// Room - короткий id или UUID комнаты; пустой - создать новую
	Room      string
	UserID    string
	Name      string
	Color     string
	Token     string
	StatePath string
	LogLevel  string
	LogFormat string
	// Shapes - сколько демонстрационных фигур создать
	Shapes      int
	ShowVersion bool
}

// DefaultClient returns the client defaults.
func DefaultClient() Client {
	return Client{
		ServerURL: "http://localhost:8080",
		StatePath: "sketchsync-client.db",
		LogLevel:  "info",
		LogFormat: LogFormatText,
	}
}

// LoadClient builds the client configuration from getenv and args.
func LoadClient(args []string, getenv func(string) string, output io.Writer) (*Client, error) {
	cfg := DefaultClient()

	e := &env{getenv: getenv}
	e.setString("SERVER", &cfg.ServerURL)
	e.setString("ROOM", &cfg.Room)
	e.setString("USER", &cfg.UserID)
	e.setString("NAME", &cfg.Name)
	e.setString("COLOR", &cfg.Color)
	e.setString("TOKEN", &cfg.Token)
	e.setString("STATE", &cfg.StatePath)
	e.setString("LOG_LEVEL", &cfg.LogLevel)
	e.setString("LOG_FORMAT", &cfg.LogFormat)
	if e.err != nil {
		return nil, e.err
	}

	fs := flag.NewFlagSet("sketchsync-client", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL")
	fs.StringVar(&cfg.Room, "room", cfg.Room, "Room id; a new room is created when empty")
	fs.StringVar(&cfg.UserID, "user", cfg.UserID, "User id; taken from the stored identity or issued by the server when empty")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "Display name")
	fs.StringVar(&cfg.Color, "color", cfg.Color, "Cursor color, #RRGGBB")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "Access token")
	fs.StringVar(&cfg.StatePath, "state", cfg.StatePath, "File with the stored client identity")
	fs.IntVar(&cfg.Shapes, "shapes", 0, "Create N demo shapes and move them")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	return &cfg, nil
}

// Validate checks the configuration and normalizes the room id.
func (c *Client) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid server url %q", c.ServerURL)
	}

	if c.Room != "" {
		id, err := roomid.Normalize(c.Room)
		if err != nil {
			return fmt.Errorf("invalid room id: %w", err)
		}
		c.Room = id
	}
	if c.UserID != "" {
		if err := validation.ValidateClientID(c.UserID); err != nil {
			return err
		}
	}
	if err := validation.ValidateDisplayName(c.Name); err != nil {
		return err
	}
	if err := validation.ValidateColor(c.Color); err != nil {
		return err
	}
	if c.Shapes < 0 {
		return errors.New("shapes must not be negative")
	}
	if c.StatePath == "" {
		return errors.New("state file is required")
	}
	return validateLog(c.LogLevel, c.LogFormat)
}
